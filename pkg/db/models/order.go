package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
)

// Order is the buyer-facing purchase record that anchors the escrow and
// payment lifecycle.
type Order struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID    uuid.UUID            `gorm:"column:seller_id;type:uuid;not null"`
	ListingID   uuid.UUID            `gorm:"column:listing_id;type:uuid;not null"`
	AmountCents int64                `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency       `gorm:"column:currency;type:text;not null;default:'COP'"`
	Status      enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'created'"`
	Version     int64                `gorm:"column:version;not null;default:0"`
	History     []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments    []Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
