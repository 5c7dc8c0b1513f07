package checkout

import (
	"context"

	"go.uber.org/multierr"

	"github.com/harborline/marketplace-backend/pkg/logger"
)

// Step names recorded on reconciliation flags and outbox events.
const (
	stepCapturePayment   = "capture_payment"
	stepPersistOrders    = "persist_orders"
	stepReserveInventory = "reserve_inventory"
	stepClearCart        = "clear_cart"
)

type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	// compensate undoes this step after a later one fails. Nil when the step
	// leaves nothing to undo.
	compensate func(ctx context.Context) error
}

type sagaFailure struct {
	step    string
	cause   error
	compErr error
}

// runSaga executes steps in order. On failure it compensates the failing step
// itself and then every completed step in reverse, aggregating compensation
// errors, and reports which step broke. Compensating the failing step lets a
// step that commits work incrementally undo its own partial progress. A nil
// return means all steps committed.
func runSaga(ctx context.Context, logg *logger.Logger, steps []sagaStep) *sagaFailure {
	completed := make([]sagaStep, 0, len(steps))
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			failure := &sagaFailure{step: step.name, cause: err}
			toUndo := append(completed, step)
			for i := len(toUndo) - 1; i >= 0; i-- {
				prev := toUndo[i]
				if prev.compensate == nil {
					continue
				}
				if compErr := prev.compensate(ctx); compErr != nil {
					failure.compErr = multierr.Append(failure.compErr, compErr)
					if logg != nil {
						logCtx := logg.WithField(ctx, "step", prev.name)
						logg.Error(logCtx, "saga compensation failed", compErr)
					}
				}
			}
			return failure
		}
		completed = append(completed, step)
	}
	return nil
}
