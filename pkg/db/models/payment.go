package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/pkg/enums"
)

// Payment is one payment attempt against an order. ProviderRef is the
// external processor's reference and is unique per order.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index;uniqueIndex:idx_payments_order_provider_ref,priority:1"`
	Provider    string              `gorm:"column:provider;not null;default:'mock'"`
	ProviderRef string              `gorm:"column:provider_ref;not null;uniqueIndex:idx_payments_order_provider_ref,priority:2"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'authorized'"`
	CapturedAt  *time.Time          `gorm:"column:captured_at"`
	RefundedAt  *time.Time          `gorm:"column:refunded_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
