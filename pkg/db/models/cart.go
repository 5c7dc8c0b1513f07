package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single active cart per customer. CheckedOutAt is stamped when a
// checkout clears it; the row itself is kept.
type Cart struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID   uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	CheckedOutAt *time.Time `gorm:"column:checked_out_at"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
