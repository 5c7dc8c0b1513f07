package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/enums"
)

// OrderStatusHistory is the append-only status trail for an order. PreviousStatus
// is nil for the creation entry.
type OrderStatusHistory struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PreviousStatus    *enums.OrderStatus `gorm:"column:previous_status;type:text"`
	NewStatus         enums.OrderStatus  `gorm:"column:new_status;type:text;not null"`
	ActorID           *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	IsSystemGenerated bool               `gorm:"column:is_system_generated;not null;default:false"`
	Reason            string             `gorm:"column:reason;not null;default:''"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
