package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
)

// Listing is the sellable item an order points at. Orders only need the
// seller and the active flag, so the model stays deliberately thin.
type Listing struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID   uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index"`
	Title      string         `gorm:"column:title;not null"`
	PriceCents int64          `gorm:"column:price_cents;not null"`
	Currency   enums.Currency `gorm:"column:currency;type:text;not null;default:'COP'"`
	Active     bool           `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
