package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/netrange"
	"github.com/novasector/server-bans/internal/observability"
	"github.com/novasector/server-bans/internal/repository"

	"github.com/google/uuid"
)

// IssueRequest carries one administrator's ban request. DurationToken and
// SeverityToken stay raw so a parse failure can name the offending token;
// empty tokens mean "not supplied".
type IssueRequest struct {
	RequestedBy   *uuid.UUID
	Target        string
	Reason        string
	DurationToken string
	SeverityToken string
}

type BanService struct {
	resolver        IdentityResolver
	playtime        PlaytimeTracker
	rounds          RoundProvider
	store           BanStore
	enforcer        Enforcer
	cache           BanCacheStore
	defaultSeverity domain.Severity
	logger          *slog.Logger
	now             func() time.Time
}

func NewBanService(
	resolver IdentityResolver,
	playtime PlaytimeTracker,
	rounds RoundProvider,
	store BanStore,
	enforcer Enforcer,
	cache BanCacheStore,
	defaultSeverity domain.Severity,
	logger *slog.Logger,
) *BanService {
	if cache == nil {
		cache = NewNoopBanCacheStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BanService{
		resolver:        resolver,
		playtime:        playtime,
		rounds:          rounds,
		store:           store,
		enforcer:        enforcer,
		cache:           cache,
		defaultSeverity: defaultSeverity,
		logger:          logger,
		now:             time.Now,
	}
}

// IssueBan validates the request, resolves the target, persists a ban
// record and kicks the target's live session if it has one. The record is
// only enforced after the store has durably accepted it; a kick miss is the
// expected case, not an error. The returned record carries its
// store-assigned id.
func (s *BanService) IssueBan(ctx context.Context, req IssueRequest) (*domain.BanRecord, error) {
	minutes, severity, err := s.validate(req)
	if err != nil {
		observability.RecordBanIssuance(ctx, "invalid_argument")
		return nil, err
	}

	identity, err := s.resolver.Resolve(ctx, req.Target)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			observability.RecordBanIssuance(ctx, "target_not_found")
			return nil, ErrTargetNotFound
		}
		observability.RecordBanIssuance(ctx, "resolver_error")
		return nil, fmt.Errorf("resolve target %q: %w", req.Target, err)
	}
	if identity == nil {
		observability.RecordBanIssuance(ctx, "target_not_found")
		return nil, ErrTargetNotFound
	}

	now := s.now().UTC()
	ban := &domain.BanRecord{
		TargetAccountID:   &identity.AccountID,
		HardwareID:        identity.LastHardwareID,
		IssuedAt:          now,
		Reason:            req.Reason,
		Severity:          severity,
		IssuedByAccountID: req.RequestedBy,
	}
	if block, ok := netrange.Normalize(identity.LastAddress); ok {
		ban.SetAddressRange(block.Addr(), block.Bits())
	}
	if minutes > 0 {
		expires := now.Add(time.Duration(minutes) * time.Minute)
		ban.ExpiresAt = &expires
	}

	// Contextual enrichments. Failures here degrade to absent/zero; they
	// are audit data, not match criteria.
	if id, ok := s.rounds.CurrentRoundID(); ok {
		ban.RoundID = &id
	}
	playtime, err := s.playtime.TotalPlaytime(ctx, identity.AccountID)
	if err != nil {
		s.logger.WarnContext(ctx, "playtime lookup failed, recording zero",
			"account_id", identity.AccountID, "error", err)
		playtime = 0
	}
	ban.PlaytimeAtIssuance = playtime

	if err := s.store.Insert(ctx, ban); err != nil {
		observability.RecordBanIssuance(ctx, "persistence_error")
		return nil, &PersistenceError{Err: err}
	}

	s.invalidateCache(ctx, ban)

	// The record is durable; only now may the live session go. The kick
	// message comes from the persisted record so both always agree.
	if s.enforcer.KickIfOnline(identity.AccountID, ban.DisconnectMessage()) {
		observability.RecordBanKick(ctx, "kicked")
	} else {
		observability.RecordBanKick(ctx, "offline")
	}

	observability.RecordBanIssuance(ctx, "success")
	observability.Audit(ctx, "ban_issued",
		"ban_id", ban.ID,
		"target", identity.Name,
		"target_account_id", identity.AccountID,
		"severity", ban.Severity,
		"permanent", ban.ExpiresAt == nil,
	)
	return ban, nil
}

func (s *BanService) validate(req IssueRequest) (uint64, domain.Severity, error) {
	if req.Target == "" {
		return 0, "", &InvalidArgumentError{Argument: "target"}
	}
	if req.Reason == "" {
		return 0, "", &InvalidArgumentError{Argument: "reason"}
	}

	var minutes uint64
	if req.DurationToken != "" {
		var err error
		minutes, err = strconv.ParseUint(req.DurationToken, 10, 32)
		if err != nil {
			return 0, "", &InvalidArgumentError{Argument: "duration", Token: req.DurationToken}
		}
	}

	severity := s.defaultSeverity
	if req.SeverityToken != "" {
		var err error
		severity, err = domain.ParseSeverity(req.SeverityToken)
		if err != nil {
			return 0, "", &InvalidArgumentError{Argument: "severity", Token: req.SeverityToken}
		}
	}
	return minutes, severity, nil
}

func (s *BanService) invalidateCache(ctx context.Context, ban *domain.BanRecord) {
	namespaces := make([]string, 0, 3)
	if ban.TargetAccountID != nil {
		namespaces = append(namespaces, CacheNamespaceAccount)
	}
	if ban.AddressBase != nil {
		namespaces = append(namespaces, CacheNamespaceAddress)
	}
	if ban.HardwareID != nil {
		namespaces = append(namespaces, CacheNamespaceHardware)
	}
	for _, ns := range namespaces {
		if err := s.cache.InvalidateNamespace(ctx, ns); err != nil {
			s.logger.WarnContext(ctx, "ban cache invalidation failed",
				"namespace", ns, "ban_id", ban.ID, "error", err)
		}
	}
}
