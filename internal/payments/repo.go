package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
)

// Repository persists the append-only payment transaction rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.PaymentTransaction) error
	CountAttemptsForCart(ctx context.Context, cartID uuid.UUID) (int64, error)
	FindByCheckout(ctx context.Context, checkoutTransactionID uuid.UUID) ([]models.PaymentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) CountAttemptsForCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("cart_id = ?", cartID).
		Count(&count).Error
	return count, err
}

func (r *repository) FindByCheckout(ctx context.Context, checkoutTransactionID uuid.UUID) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("checkout_transaction_id = ?", checkoutTransactionID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
