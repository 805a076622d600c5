package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player is the last-seen record kept per known account. The identity
// resolver and the playtime tracker both read from it; the connection
// handler upserts it on every join.
type Player struct {
	AccountID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"account_id"`
	Name           string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	LastAddress    *string   `gorm:"size:64" json:"last_address,omitempty"`
	LastHardwareID *string   `gorm:"size:128" json:"last_hardware_id,omitempty"`

	// Cumulative play time, maintained by session bookkeeping.
	TotalPlaytime time.Duration `json:"total_playtime"`

	FirstSeenAt time.Time `gorm:"not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"index;not null" json:"last_seen_at"`
}

func (Player) TableName() string { return "players" }
