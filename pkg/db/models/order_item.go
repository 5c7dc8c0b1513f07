package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots the product at persist time. SKUID is nullable so SKU
// deletion never rewrites history.
type OrderItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	SKUID           *uuid.UUID `gorm:"column:sku_id;type:uuid"`
	ProductName     string     `gorm:"column:product_name;not null"`
	PrimaryImageURL *string    `gorm:"column:primary_image_url"`
	UnitPriceCents  int64      `gorm:"column:unit_price_cents;not null"`
	Qty             int        `gorm:"column:qty;not null"`
	LineTotalCents  int64      `gorm:"column:line_total_cents;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
