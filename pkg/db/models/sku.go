package models

import (
	"time"

	"github.com/google/uuid"
)

// SKU carries the sellable unit price and the available/reserved inventory
// counts. AvailableQty is only ever decremented through the guarded update in
// internal/inventory.
type SKU struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	PriceCents   int64     `gorm:"column:price_cents;not null"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int       `gorm:"column:reserved_qty;not null;default:0"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SKU) TableName() string { return "skus" }
