package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
)

// OrderStatusHistory records one status transition on an order. FromStatus is
// nil for the creation row.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:text;not null"`
	Reason     *string            `gorm:"column:reason"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the singular table name used by the migrations.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
