package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harborline/marketplace-backend/pkg/logger"
)

const cartRetentionDays = 90

type cartPruner interface {
	PruneAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartCleanupJobParams configure the abandoned cart cleanup job.
type CartCleanupJobParams struct {
	Logger    *logger.Logger
	Carts     cartPruner
	Retention int
}

// NewCartCleanupJob builds the job that empties carts nobody has touched for
// the retention window. SKUs come and go; stale lines would fail validation at
// checkout anyway.
func NewCartCleanupJob(params CartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = cartRetentionDays
	}
	return &cartCleanupJob{
		logg:      params.Logger,
		carts:     params.Carts,
		retention: retention,
		now:       time.Now,
	}, nil
}

type cartCleanupJob struct {
	logg      *logger.Logger
	carts     cartPruner
	retention int
	now       func() time.Time
}

func (j *cartCleanupJob) Name() string { return "abandoned-cart-cleanup" }

func (j *cartCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	pruned, err := j.carts.PruneAbandonedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("abandoned cart cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"items_pruned":   pruned,
	})
	j.logg.Info(logCtx, "abandoned cart cleanup complete")
	return nil
}
