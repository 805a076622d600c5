package service

import (
	"context"
	"time"

	"github.com/novasector/server-bans/internal/domain"

	"github.com/google/uuid"
)

// IdentityResolver maps a human-entered target (display name or account id)
// to a canonical identity bundle. A nil identity with a nil error means no
// account matched.
type IdentityResolver interface {
	Resolve(ctx context.Context, nameOrID string) (*domain.ResolvedIdentity, error)
}

// PlaytimeTracker reports the total tracked play time for an account, zero
// when untracked.
type PlaytimeTracker interface {
	TotalPlaytime(ctx context.Context, accountID uuid.UUID) (time.Duration, error)
}

// RoundProvider reports the identifier of the game round in progress.
// ok is false when no round is active or it has not been assigned an id yet.
type RoundProvider interface {
	CurrentRoundID() (id int, ok bool)
}

// BanStore persists ban records, assigning the record's ID on insert.
type BanStore interface {
	Insert(ctx context.Context, ban *domain.BanRecord) error
}

// Enforcer terminates a live session, if one exists, delivering message as
// the disconnect reason. Returns false when the target is offline.
type Enforcer interface {
	KickIfOnline(accountID uuid.UUID, message string) bool
}
