package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
)

// Escrow holds an order's funds while the transaction is in flight. Exactly
// one escrow exists per order.
type Escrow struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Provider    string             `gorm:"column:provider;not null;default:'mock'"`
	AmountCents int64              `gorm:"column:amount_cents;not null"`
	Status      enums.EscrowStatus `gorm:"column:status;type:text;not null;default:'initiated'"`
	Version     int64              `gorm:"column:version;not null;default:0"`
	Events      []EscrowEvent      `gorm:"foreignKey:EscrowID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
