package repository

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository keeps the last-seen record per known account. It backs
// both identity resolution and playtime lookups for ban issuance.
type PlayerRepository interface {
	Upsert(ctx context.Context, player *domain.Player) error
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Player, error)
	FindByName(ctx context.Context, name string) (*domain.Player, error)
	AddPlaytime(ctx context.Context, accountID uuid.UUID, delta time.Duration) error

	Resolve(ctx context.Context, nameOrID string) (*domain.ResolvedIdentity, error)
	TotalPlaytime(ctx context.Context, accountID uuid.UUID) (time.Duration, error)
}

type GormPlayerRepository struct{ db *gorm.DB }

func NewPlayerRepository(db *gorm.DB) PlayerRepository { return &GormPlayerRepository{db: db} }

func (r *GormPlayerRepository) Upsert(ctx context.Context, player *domain.Player) error {
	err := r.db.WithContext(ctx).Save(player).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "player", "upsert", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "player", "upsert", "success")
	return nil
}

func (r *GormPlayerRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Player, error) {
	var p domain.Player
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "player", "find_by_account_id", "not_found")
			return nil, ErrPlayerNotFound
		}
		observability.RecordRepositoryOperation(ctx, "player", "find_by_account_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "player", "find_by_account_id", "success")
	return &p, nil
}

func (r *GormPlayerRepository) FindByName(ctx context.Context, name string) (*domain.Player, error) {
	var p domain.Player
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "player", "find_by_name", "not_found")
			return nil, ErrPlayerNotFound
		}
		observability.RecordRepositoryOperation(ctx, "player", "find_by_name", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "player", "find_by_name", "success")
	return &p, nil
}

func (r *GormPlayerRepository) AddPlaytime(ctx context.Context, accountID uuid.UUID, delta time.Duration) error {
	res := r.db.WithContext(ctx).Model(&domain.Player{}).
		Where("account_id = ?", accountID).
		Update("total_playtime", gorm.Expr("total_playtime + ?", int64(delta)))
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "player", "add_playtime", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "player", "add_playtime", "not_found")
		return ErrPlayerNotFound
	}
	observability.RecordRepositoryOperation(ctx, "player", "add_playtime", "success")
	return nil
}

// Resolve looks a target up by display name first and falls back to parsing
// the input as an account id, the way admins type either interchangeably.
func (r *GormPlayerRepository) Resolve(ctx context.Context, nameOrID string) (*domain.ResolvedIdentity, error) {
	player, err := r.FindByName(ctx, nameOrID)
	if errors.Is(err, ErrPlayerNotFound) {
		id, parseErr := uuid.Parse(nameOrID)
		if parseErr != nil {
			return nil, ErrPlayerNotFound
		}
		player, err = r.FindByAccountID(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	identity := &domain.ResolvedIdentity{
		AccountID:      player.AccountID,
		Name:           player.Name,
		LastHardwareID: player.LastHardwareID,
	}
	if player.LastAddress != nil {
		if addr, err := netip.ParseAddr(*player.LastAddress); err == nil {
			identity.LastAddress = addr
		}
	}
	return identity, nil
}

func (r *GormPlayerRepository) TotalPlaytime(ctx context.Context, accountID uuid.UUID) (time.Duration, error) {
	player, err := r.FindByAccountID(ctx, accountID)
	if errors.Is(err, ErrPlayerNotFound) {
		// Untracked accounts simply have no time on record.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return player.TotalPlaytime, nil
}
