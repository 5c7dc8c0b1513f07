package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/enums"
)

// InventoryTransaction is one append-only ledger entry per stock movement.
// ResultingQty records available stock after the movement applied.
type InventoryTransaction struct {
	ID             uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKUID          uuid.UUID                      `gorm:"column:sku_id;type:uuid;not null;index"`
	OrderID        *uuid.UUID                     `gorm:"column:order_id;type:uuid;index"`
	Type           enums.InventoryTransactionType `gorm:"column:type;type:text;not null"`
	QuantityChange int                            `gorm:"column:quantity_change;not null"`
	ResultingQty   int                            `gorm:"column:resulting_qty;not null"`
	CreatedAt      time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
