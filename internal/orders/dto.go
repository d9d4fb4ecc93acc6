package orders

import (
	"github.com/davidorozcoq/mercadito-backend/pkg/db/models"
	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateOrderInput captures what a buyer submits to open an order. Seller,
// amount and currency default to the listing's values when omitted.
type CreateOrderInput struct {
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	ListingID   uuid.UUID
	AmountCents int64
	Currency    enums.Currency
}

// OrderList is one page of a buyer's orders plus the cursor for the next one.
type OrderList struct {
	Orders     []models.Order
	NextCursor *string
}

// OrderDetail aggregates everything known about one order.
type OrderDetail struct {
	Order    models.Order                `json:"order"`
	History  []models.OrderStatusHistory `json:"history"`
	Payments []models.Payment            `json:"payments"`
	Escrow   *models.Escrow              `json:"escrow,omitempty"`
}
