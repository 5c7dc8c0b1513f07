package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is catalog metadata snapshotted onto order items at persist time.
type Product struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID        uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	PrimaryImageURL *string   `gorm:"column:primary_image_url"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
