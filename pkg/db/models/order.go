package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/enums"
	"github.com/harborline/marketplace-backend/pkg/types"
)

// Order is the per-seller order produced from a checkout split. Orders sharing
// a CheckoutTransactionID came from the same cart and the same capture.
type Order struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber           string               `gorm:"column:order_number;not null;uniqueIndex:uq_orders_order_number"`
	CheckoutTransactionID uuid.UUID            `gorm:"column:checkout_transaction_id;type:uuid;not null;index"`
	CustomerID            uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	SellerID              uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	Status                enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'payment_confirmed'"`
	Currency              enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	ShippingMethod        enums.ShippingMethod `gorm:"column:shipping_method;type:text;not null"`
	SubtotalCents         int64                `gorm:"column:subtotal_cents;not null"`
	TaxCents              int64                `gorm:"column:tax_cents;not null"`
	ShippingCents         int64                `gorm:"column:shipping_cents;not null"`
	TotalCents            int64                `gorm:"column:total_cents;not null"`
	DeliveryAddress       types.Address        `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	PaymentTransactionID  uuid.UUID            `gorm:"column:payment_transaction_id;type:uuid;not null"`
	Items                 []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
