package repository

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/netrange"
	"github.com/novasector/server-bans/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrBanNotFound      = errors.New("ban not found")
	ErrBanAlreadyLifted = errors.New("ban already lifted")
)

// BanRepository is the durable store for ban records. Insert assigns the
// record's ID; the Find* methods cover the three match criteria a
// connection-time check needs to consult.
type BanRepository interface {
	Insert(ctx context.Context, ban *domain.BanRecord) error
	FindByID(ctx context.Context, id uint) (*domain.BanRecord, error)
	FindActiveByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.BanRecord, error)
	FindActiveByHardwareID(ctx context.Context, hardwareID string) ([]domain.BanRecord, error)
	FindActiveByAddress(ctx context.Context, addr netip.Addr) ([]domain.BanRecord, error)
	Lift(ctx context.Context, banID uint, liftedBy uuid.UUID) error
}

type GormBanRepository struct{ db *gorm.DB }

func NewBanRepository(db *gorm.DB) BanRepository { return &GormBanRepository{db: db} }

func (r *GormBanRepository) Insert(ctx context.Context, ban *domain.BanRecord) error {
	if err := ban.Validate(); err != nil {
		observability.RecordRepositoryOperation(ctx, "ban", "insert", "invalid")
		return err
	}
	if err := r.db.WithContext(ctx).Create(ban).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "ban", "insert", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "ban", "insert", "success")
	return nil
}

func (r *GormBanRepository) FindByID(ctx context.Context, id uint) (*domain.BanRecord, error) {
	var ban domain.BanRecord
	err := r.db.WithContext(ctx).First(&ban, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "ban", "find_by_id", "not_found")
			return nil, ErrBanNotFound
		}
		observability.RecordRepositoryOperation(ctx, "ban", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "ban", "find_by_id", "success")
	return &ban, nil
}

func (r *GormBanRepository) FindActiveByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.BanRecord, error) {
	var bans []domain.BanRecord
	err := r.activeScope(ctx).
		Where("target_account_id = ?", accountID).
		Order("issued_at DESC").
		Find(&bans).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "ban", "find_active_by_account", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "ban", "find_active_by_account", "success")
	return bans, nil
}

func (r *GormBanRepository) FindActiveByHardwareID(ctx context.Context, hardwareID string) ([]domain.BanRecord, error) {
	var bans []domain.BanRecord
	err := r.activeScope(ctx).
		Where("hardware_id = ?", hardwareID).
		Order("issued_at DESC").
		Find(&bans).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "ban", "find_active_by_hardware_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "ban", "find_active_by_hardware_id", "success")
	return bans, nil
}

// FindActiveByAddress returns the active bans whose address range contains
// addr. Candidate rows are narrowed in SQL; containment itself is decided
// with netip so the masking semantics live in one place.
func (r *GormBanRepository) FindActiveByAddress(ctx context.Context, addr netip.Addr) ([]domain.BanRecord, error) {
	var candidates []domain.BanRecord
	err := r.activeScope(ctx).
		Where("address_base IS NOT NULL").
		Order("issued_at DESC").
		Find(&candidates).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "ban", "find_active_by_address", "error")
		return nil, err
	}
	var bans []domain.BanRecord
	for _, ban := range candidates {
		block, ok := ban.AddressRange()
		if !ok {
			continue
		}
		if netrange.Contains(block, addr) {
			bans = append(bans, ban)
		}
	}
	observability.RecordRepositoryOperation(ctx, "ban", "find_active_by_address", "success")
	return bans, nil
}

func (r *GormBanRepository) Lift(ctx context.Context, banID uint, liftedBy uuid.UUID) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.BanRecord{}).
		Where("id = ? AND unbanned_at IS NULL", banID).
		Updates(map[string]any{"unbanned_at": now, "unbanned_by_account_id": liftedBy})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "ban", "lift", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		var ban domain.BanRecord
		err := r.db.WithContext(ctx).First(&ban, banID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "ban", "lift", "not_found")
			return ErrBanNotFound
		}
		if err != nil {
			observability.RecordRepositoryOperation(ctx, "ban", "lift", "error")
			return err
		}
		observability.RecordRepositoryOperation(ctx, "ban", "lift", "already_lifted")
		return ErrBanAlreadyLifted
	}
	observability.RecordRepositoryOperation(ctx, "ban", "lift", "success")
	return nil
}

func (r *GormBanRepository) activeScope(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("unbanned_at IS NULL").
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC())
}
