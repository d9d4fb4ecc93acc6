package models

import (
	"time"

	"github.com/google/uuid"
)

// EscrowEvent is the append-only audit trail of steps taken against an escrow.
type EscrowEvent struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EscrowID  uuid.UUID `gorm:"column:escrow_id;type:uuid;not null;index"`
	Step      string    `gorm:"column:step;not null"`
	Result    string    `gorm:"column:result;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
