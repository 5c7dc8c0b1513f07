package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/enums"
	"github.com/harborline/marketplace-backend/pkg/types"
)

// PaymentTransaction records a single gateway capture attempt. Rows are
// immutable once written; operator follow-up lives in ReconciliationFlag.
type PaymentTransaction struct {
	ID                    uuid.UUID                       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutTransactionID uuid.UUID                       `gorm:"column:checkout_transaction_id;type:uuid;not null;index"`
	CartID                uuid.UUID                       `gorm:"column:cart_id;type:uuid;not null"`
	CustomerID            uuid.UUID                       `gorm:"column:customer_id;type:uuid;not null;index"`
	PaymentMethodID       uuid.UUID                       `gorm:"column:payment_method_id;type:uuid;not null"`
	AmountCents           int64                           `gorm:"column:amount_cents;not null"`
	Currency              enums.Currency                  `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status                enums.PaymentTransactionStatus  `gorm:"column:status;type:text;not null"`
	AttemptNumber         int                             `gorm:"column:attempt_number;not null;default:1"`
	GatewayTransactionID  *string                         `gorm:"column:gateway_transaction_id"`
	GatewayResponse       types.JSONMap                   `gorm:"column:gateway_response;type:jsonb;serializer:json"`
	BillingAddress        *types.Address                  `gorm:"column:billing_address;type:jsonb;serializer:json"`
	CreatedAt             time.Time                       `gorm:"column:created_at;autoCreateTime"`
}
