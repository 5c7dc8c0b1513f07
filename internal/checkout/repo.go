package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
)

// Repository persists reconciliation flags.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFlag(ctx context.Context, flag *models.ReconciliationFlag) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateFlag(ctx context.Context, flag *models.ReconciliationFlag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}
