package addresses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

// Repository reads customer delivery addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOwned(ctx context.Context, id, customerID uuid.UUID) (*models.Address, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindOwned loads a live address and enforces ownership. A deleted or foreign
// address reads as not found so the caller cannot distinguish the two.
func (r *repository) FindOwned(ctx context.Context, id, customerID uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ? AND deleted_at IS NULL", id, customerID).
		First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address not found").
			WithDetails(map[string]any{"address_id": id})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading address")
	}
	return &address, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND deleted_at IS NULL", customerID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
