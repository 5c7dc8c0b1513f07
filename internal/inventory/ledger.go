package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	"github.com/harborline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

// Request describes one stock movement against a SKU.
type Request struct {
	SKUID   uuid.UUID
	OrderID *uuid.UUID
	Qty     int
}

// Ledger applies guarded stock movements and appends one transaction row per
// movement. Availability never goes negative: the decrement only lands when
// the WHERE clause proves enough stock exists.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve moves qty units from available to reserved for a sale. A zero-row
// update means the SKU is missing, inactive, or short on stock; the error code
// distinguishes the three.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, req Request) error {
	if err := validateRequest(tx, req); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Model(&models.SKU{}).
		Where("id = ? AND is_active = ? AND available_qty >= ?", req.SKUID, true, req.Qty).
		Updates(map[string]any{
			"available_qty": gorm.Expr("available_qty - ?", req.Qty),
			"reserved_qty":  gorm.Expr("reserved_qty + ?", req.Qty),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "reserving inventory")
	}
	if res.RowsAffected == 0 {
		return l.classifyReserveFailure(ctx, tx, req)
	}

	return l.append(ctx, tx, req, enums.InventoryTransactionTypeSale, -req.Qty)
}

// Release returns previously reserved units to available stock. Used by
// compensation after a failed checkout.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, req Request) error {
	if err := validateRequest(tx, req); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Model(&models.SKU{}).
		Where("id = ? AND reserved_qty >= ?", req.SKUID, req.Qty).
		Updates(map[string]any{
			"available_qty": gorm.Expr("available_qty + ?", req.Qty),
			"reserved_qty":  gorm.Expr("reserved_qty - ?", req.Qty),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "releasing inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "release exceeds reserved quantity").
			WithDetails(map[string]any{"sku_id": req.SKUID, "qty": req.Qty})
	}

	return l.append(ctx, tx, req, enums.InventoryTransactionTypeRelease, req.Qty)
}

// Restock adds fresh units to available stock for operator flows.
func (l *Ledger) Restock(ctx context.Context, tx *gorm.DB, req Request) error {
	if err := validateRequest(tx, req); err != nil {
		return err
	}

	res := tx.WithContext(ctx).Model(&models.SKU{}).
		Where("id = ?", req.SKUID).
		Update("available_qty", gorm.Expr("available_qty + ?", req.Qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restocking inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").
			WithDetails(map[string]any{"sku_id": req.SKUID})
	}

	return l.append(ctx, tx, req, enums.InventoryTransactionTypeRestock, req.Qty)
}

// History returns the ledger rows for a SKU, oldest first.
func (l *Ledger) History(ctx context.Context, db *gorm.DB, skuID uuid.UUID) ([]models.InventoryTransaction, error) {
	var rows []models.InventoryTransaction
	err := db.WithContext(ctx).
		Where("sku_id = ?", skuID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (l *Ledger) classifyReserveFailure(ctx context.Context, tx *gorm.DB, req Request) error {
	var sku models.SKU
	err := tx.WithContext(ctx).Where("id = ?", req.SKUID).First(&sku).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").
			WithDetails(map[string]any{"sku_id": req.SKUID})
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sku after failed reserve")
	case !sku.IsActive:
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is no longer available").
			WithDetails(map[string]any{"sku_id": req.SKUID})
	default:
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"sku_id":    req.SKUID,
				"requested": req.Qty,
				"available": sku.AvailableQty,
			})
	}
}

func (l *Ledger) append(ctx context.Context, tx *gorm.DB, req Request, txType enums.InventoryTransactionType, change int) error {
	var sku models.SKU
	if err := tx.WithContext(ctx).Where("id = ?", req.SKUID).First(&sku).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sku for ledger entry")
	}
	entry := models.InventoryTransaction{
		ID:             uuid.New(),
		SKUID:          req.SKUID,
		OrderID:        req.OrderID,
		Type:           txType,
		QuantityChange: change,
		ResultingQty:   sku.AvailableQty,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "appending inventory transaction")
	}
	return nil
}

func validateRequest(tx *gorm.DB, req Request) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if req.SKUID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku id is required")
	}
	if req.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
