package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/types"
)

// PaymentMethod is a stored gateway token plus display metadata. Expiry is
// validated against the clock at checkout time.
type PaymentMethod struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID      `gorm:"column:customer_id;type:uuid;not null;index"`
	GatewayToken   string         `gorm:"column:gateway_token;not null"`
	CardBrand      string         `gorm:"column:card_brand;not null"`
	CardLast4      string         `gorm:"column:card_last4;not null"`
	CardExpMonth   int            `gorm:"column:card_exp_month;not null"`
	CardExpYear    int            `gorm:"column:card_exp_year;not null"`
	BillingDetails *types.Address `gorm:"column:billing_details;type:jsonb;serializer:json"`
	DeletedAt      *time.Time     `gorm:"column:deleted_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the card expiry has passed as of now. Cards expire
// at the end of their stated month.
func (pm PaymentMethod) Expired(now time.Time) bool {
	if pm.CardExpYear == 0 {
		return false
	}
	endOfMonth := time.Date(pm.CardExpYear, time.Month(pm.CardExpMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.Before(endOfMonth)
}
