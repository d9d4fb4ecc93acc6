package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidorozcoq/mercadito-backend/pkg/types"
)

// Event is one row of the append-only analytics ledger. Rows are only ever
// inserted, never updated. OccurredAt is producer-supplied and is the
// authoritative ordering key for downstream aggregations.
type Event struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType  string         `gorm:"column:event_type;not null;index"`
	UserID     *uuid.UUID     `gorm:"column:user_id;type:uuid;index"`
	SessionID  string         `gorm:"column:session_id;not null;default:'srv'"`
	ListingID  *uuid.UUID     `gorm:"column:listing_id;type:uuid"`
	OrderID    *uuid.UUID     `gorm:"column:order_id;type:uuid;index"`
	ChatID     *uuid.UUID     `gorm:"column:chat_id;type:uuid"`
	Step       *string        `gorm:"column:step"`
	Properties *types.JSONMap `gorm:"column:properties;type:jsonb;serializer:json"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
}
