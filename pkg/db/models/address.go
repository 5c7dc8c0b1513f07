package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/types"
)

// Address is a customer delivery address. Soft deleted so historical orders
// keep a valid FK trail even though they snapshot the value.
type Address struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID     `gorm:"column:customer_id;type:uuid;not null;index"`
	Value      types.Address `gorm:"column:value;type:jsonb;serializer:json"`
	DeletedAt  *time.Time    `gorm:"column:deleted_at"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
