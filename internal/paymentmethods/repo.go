package paymentmethods

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

// Repository reads stored payment methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOwned(ctx context.Context, id, customerID uuid.UUID) (*models.PaymentMethod, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment method repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOwned(ctx context.Context, id, customerID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ? AND deleted_at IS NULL", id, customerID).
		First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method not found").
			WithDetails(map[string]any{"payment_method_id": id})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment method")
	}
	return &method, nil
}

// ValidateUsable enforces the checks checkout needs before charging: the
// method must belong to the customer and must not be expired.
func ValidateUsable(method *models.PaymentMethod, now time.Time) error {
	if method == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}
	if method.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is expired").
			WithDetails(map[string]any{
				"payment_method_id": method.ID,
				"card_last4":        method.CardLast4,
			})
	}
	return nil
}
