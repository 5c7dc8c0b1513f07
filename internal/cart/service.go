package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/internal/catalog"
	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemInput is one requested cart line.
type ItemInput struct {
	SKUID uuid.UUID
	Qty   int
}

// Service exposes the cart read/replace surface.
type Service interface {
	Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	Replace(ctx context.Context, customerID uuid.UUID, items []ItemInput) (*models.Cart, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	catalogRepo catalog.Repository
}

// NewService builds the cart service.
func NewService(tx txRunner, repo Repository, catalogRepo catalog.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{tx: tx, repo: repo, catalogRepo: catalogRepo}, nil
}

// Get returns the active cart, or an empty one if the customer has none yet.
func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	cart, err := s.repo.FindActiveByCustomer(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{CustomerID: customerID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return cart, nil
}

// Replace swaps the cart contents for the given lines, capturing the current
// SKU price on each line.
func (s *service) Replace(ctx context.Context, customerID uuid.UUID, items []ItemInput) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	seen := map[uuid.UUID]bool{}
	skuIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.SKUID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku id required on every line")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"sku_id": item.SKUID})
		}
		if seen[item.SKUID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate sku in cart").
				WithDetails(map[string]any{"sku_id": item.SKUID})
		}
		seen[item.SKUID] = true
		skuIDs = append(skuIDs, item.SKUID)
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		view, err := catalog.Load(ctx, s.catalogRepo.WithTx(tx), skuIDs)
		if err != nil {
			return err
		}

		cart, err := repo.FindOrCreateByCustomer(ctx, customerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}

		rows := make([]models.CartItem, 0, len(items))
		for _, item := range items {
			sku := view.SKUs[item.SKUID]
			if !sku.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "sku is no longer available").
					WithDetails(map[string]any{"sku_id": item.SKUID})
			}
			rows = append(rows, models.CartItem{
				ID:             uuid.New(),
				CartID:         cart.ID,
				SKUID:          item.SKUID,
				Qty:            item.Qty,
				UnitPriceCents: sku.PriceCents,
			})
		}

		if err := repo.ReplaceItems(ctx, cart.ID, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing cart items")
		}

		cart.Items = rows
		result = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
