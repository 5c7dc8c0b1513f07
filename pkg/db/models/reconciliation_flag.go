package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/types"
)

// ReconciliationFlag marks a checkout where money moved but fulfillment did
// not complete. The payment transaction itself is never edited; operators work
// this queue instead.
type ReconciliationFlag struct {
	ID                    uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutTransactionID uuid.UUID     `gorm:"column:checkout_transaction_id;type:uuid;not null;index"`
	PaymentTransactionID  uuid.UUID     `gorm:"column:payment_transaction_id;type:uuid;not null"`
	Reason                string        `gorm:"column:reason;not null"`
	Details               types.JSONMap `gorm:"column:details;type:jsonb;serializer:json"`
	ResolvedAt            *time.Time    `gorm:"column:resolved_at"`
	CreatedAt             time.Time     `gorm:"column:created_at;autoCreateTime"`
}
