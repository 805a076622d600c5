package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyReason = errors.New("ban reason must not be empty")

	// ErrNoMatchCriteria is returned when a record carries neither an
	// account id, nor an address range, nor a hardware id. Such a record
	// would match nobody and must never reach the store.
	ErrNoMatchCriteria = errors.New("ban record carries no match criteria")
)

// BanRecord is the persisted statement of exclusion. It is constructed once
// by the issuance workflow and never mutated afterwards, except for ID
// (assigned by the store on insert) and the unban pair (set exactly once
// when the ban is lifted).
type BanRecord struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Match criteria. At least one must be present.
	TargetAccountID  *uuid.UUID `gorm:"type:uuid;index" json:"target_account_id,omitempty"`
	AddressBase      *string    `gorm:"size:64;index" json:"address_base,omitempty"`
	AddressPrefixLen *int       `json:"address_prefix_len,omitempty"`
	HardwareID       *string    `gorm:"size:128;index" json:"hardware_id,omitempty"`

	IssuedAt  time.Time  `gorm:"index;not null" json:"issued_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`

	// Contextual audit fields, never used for matching.
	RoundID            *int          `json:"round_id,omitempty"`
	PlaytimeAtIssuance time.Duration `json:"playtime_at_issuance"`

	Reason            string     `gorm:"size:1024;not null" json:"reason"`
	Severity          Severity   `gorm:"size:16;not null" json:"severity"`
	IssuedByAccountID *uuid.UUID `gorm:"type:uuid" json:"issued_by_account_id,omitempty"`

	UnbannedAt          *time.Time `gorm:"index" json:"unbanned_at,omitempty"`
	UnbannedByAccountID *uuid.UUID `gorm:"type:uuid" json:"unbanned_by_account_id,omitempty"`
}

func (BanRecord) TableName() string { return "server_bans" }

// AddressRange reports the banned address block, if any.
func (b *BanRecord) AddressRange() (netip.Prefix, bool) {
	if b.AddressBase == nil || b.AddressPrefixLen == nil {
		return netip.Prefix{}, false
	}
	addr, err := netip.ParseAddr(*b.AddressBase)
	if err != nil {
		return netip.Prefix{}, false
	}
	prefix, err := addr.Prefix(*b.AddressPrefixLen)
	if err != nil {
		return netip.Prefix{}, false
	}
	return prefix, true
}

// SetAddressRange records the banned block. The base keeps its host bits;
// containment checks mask them via netip.Prefix.
func (b *BanRecord) SetAddressRange(base netip.Addr, prefixLen int) {
	s := base.String()
	b.AddressBase = &s
	b.AddressPrefixLen = &prefixLen
}

// Expired reports whether the ban has lapsed by itself. A lifted ban is not
// "expired"; callers filter on UnbannedAt separately.
func (b *BanRecord) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}

// Validate enforces the construction invariants before the record may be
// handed to a store.
func (b *BanRecord) Validate() error {
	if b.Reason == "" {
		return ErrEmptyReason
	}
	if !b.Severity.Valid() {
		return &UnknownSeverityError{Token: string(b.Severity)}
	}
	if b.TargetAccountID == nil && b.AddressBase == nil && b.HardwareID == nil {
		return ErrNoMatchCriteria
	}
	return nil
}

// DisconnectMessage renders the text shown to a kicked or rejected client.
// It is always generated from the persisted record, so what the user sees
// matches what the store holds.
func (b *BanRecord) DisconnectMessage() string {
	msg := fmt.Sprintf("You, or another user of this computer or connection, are banned from playing here.\nBan reason: %q", b.Reason)
	if b.ExpiresAt == nil {
		return msg + "\nThis ban is permanent and can only be removed via appeal."
	}
	return msg + fmt.Sprintf("\nThis ban expires at %s.", b.ExpiresAt.UTC().Format(time.RFC1123))
}

// ResolvedIdentity is the identity bundle a lookup target resolves to. It
// lives only for the duration of one issuance; the ban record is the
// persisted form.
type ResolvedIdentity struct {
	AccountID      uuid.UUID
	Name           string
	LastAddress    netip.Addr // zero value when unknown
	LastHardwareID *string
}
