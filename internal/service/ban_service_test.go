package service

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/repository"

	"github.com/google/uuid"
)

type testResolver struct {
	resolveFn func(ctx context.Context, nameOrID string) (*domain.ResolvedIdentity, error)
}

func (r testResolver) Resolve(ctx context.Context, nameOrID string) (*domain.ResolvedIdentity, error) {
	if r.resolveFn != nil {
		return r.resolveFn(ctx, nameOrID)
	}
	id := uuid.MustParse("8d2e7a66-9c3b-4a34-9d2f-05b80e0d3a41")
	return &domain.ResolvedIdentity{AccountID: id, Name: nameOrID}, nil
}

type testPlaytime struct {
	totalFn func(ctx context.Context, accountID uuid.UUID) (time.Duration, error)
}

func (p testPlaytime) TotalPlaytime(ctx context.Context, accountID uuid.UUID) (time.Duration, error) {
	if p.totalFn != nil {
		return p.totalFn(ctx, accountID)
	}
	return 0, nil
}

type testRounds struct {
	id int
	ok bool
}

func (r testRounds) CurrentRoundID() (int, bool) { return r.id, r.ok }

type testStore struct {
	inserts  int
	insertFn func(ctx context.Context, ban *domain.BanRecord) error
}

func (s *testStore) Insert(ctx context.Context, ban *domain.BanRecord) error {
	s.inserts++
	if s.insertFn != nil {
		return s.insertFn(ctx, ban)
	}
	ban.ID = 42
	return nil
}

type testEnforcer struct {
	kicks    int
	online   bool
	messages []string
}

func (e *testEnforcer) KickIfOnline(accountID uuid.UUID, message string) bool {
	e.kicks++
	e.messages = append(e.messages, message)
	return e.online
}

type testHarness struct {
	resolver testResolver
	playtime testPlaytime
	rounds   testRounds
	store    *testStore
	enforcer *testEnforcer
	cache    *InMemoryBanCacheStore
	now      time.Time
}

func newHarness() *testHarness {
	return &testHarness{
		store:    &testStore{},
		enforcer: &testEnforcer{},
		cache:    NewInMemoryBanCacheStore(),
		now:      time.Date(2026, 2, 10, 18, 30, 0, 0, time.UTC),
	}
}

func (h *testHarness) service() *BanService {
	svc := NewBanService(
		h.resolver, h.playtime, h.rounds, h.store, h.enforcer, h.cache,
		domain.SeverityHigh,
		slog.New(slog.DiscardHandler),
	)
	svc.now = func() time.Time { return h.now }
	return svc
}

func TestIssueBanPermanentWithDefaults(t *testing.T) {
	h := newHarness()
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{
		Target: "Alice",
		Reason: "Griefing",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ban.ExpiresAt != nil {
		t.Fatalf("no duration means permanent, got expiry %v", ban.ExpiresAt)
	}
	if ban.Severity != domain.SeverityHigh {
		t.Fatalf("expected the configured default severity, got %q", ban.Severity)
	}
	if ban.ID != 42 {
		t.Fatalf("expected the store-assigned id on the returned record, got %d", ban.ID)
	}
	if ban.IssuedByAccountID != nil {
		t.Fatal("a console issuance has no issuing account")
	}
}

func TestIssueBanDurationComputesExpiry(t *testing.T) {
	h := newHarness()
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{
		Target:        "Alice",
		Reason:        "Griefing",
		DurationToken: "1440",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ban.ExpiresAt == nil {
		t.Fatal("expected an expiry")
	}
	want := h.now.Add(24 * time.Hour)
	if !ban.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, *ban.ExpiresAt)
	}
	if !ban.IssuedAt.Equal(h.now) {
		t.Fatalf("issued_at must be the issuance instant, got %v", ban.IssuedAt)
	}
}

func TestIssueBanZeroDurationIsPermanent(t *testing.T) {
	h := newHarness()
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{
		Target:        "Alice",
		Reason:        "Griefing",
		DurationToken: "0",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ban.ExpiresAt != nil {
		t.Fatalf("duration 0 must not produce an instantly-expired ban, got %v", *ban.ExpiresAt)
	}
}

func TestIssueBanExplicitSeverity(t *testing.T) {
	h := newHarness()
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{
		Target:        "Alice",
		Reason:        "Griefing",
		DurationToken: "1440",
		SeverityToken: "medium",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ban.Severity != domain.SeverityMedium {
		t.Fatalf("expected medium, got %q", ban.Severity)
	}
}

func TestIssueBanUnparsableDuration(t *testing.T) {
	h := newHarness()
	_, err := h.service().IssueBan(context.Background(), IssueRequest{
		Target:        "Alice",
		Reason:        "Griefing",
		DurationToken: "soon",
	})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
	if invalid.Argument != "duration" || invalid.Token != "soon" {
		t.Fatalf("error must name the offending token, got %+v", invalid)
	}
	if h.store.inserts != 0 {
		t.Fatalf("validation failure must not touch the store, saw %d inserts", h.store.inserts)
	}
	if h.enforcer.kicks != 0 {
		t.Fatal("validation failure must not enforce")
	}
}

func TestIssueBanUnknownSeverity(t *testing.T) {
	h := newHarness()
	_, err := h.service().IssueBan(context.Background(), IssueRequest{
		Target:        "Alice",
		Reason:        "Griefing",
		DurationToken: "60",
		SeverityToken: "catastrophic",
	})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
	if invalid.Argument != "severity" || invalid.Token != "catastrophic" {
		t.Fatalf("severity and duration failures must be distinguishable, got %+v", invalid)
	}
	if h.store.inserts != 0 {
		t.Fatal("validation failure must not touch the store")
	}
}

func TestIssueBanEmptyReason(t *testing.T) {
	h := newHarness()
	_, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice"})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) || invalid.Argument != "reason" {
		t.Fatalf("expected invalid reason, got %v", err)
	}
}

func TestIssueBanTargetNotFound(t *testing.T) {
	h := newHarness()
	h.resolver = testResolver{resolveFn: func(context.Context, string) (*domain.ResolvedIdentity, error) {
		return nil, repository.ErrPlayerNotFound
	}}
	_, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Nobody", Reason: "x"})
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if h.store.inserts != 0 || h.enforcer.kicks != 0 {
		t.Fatal("an unresolved target must produce no side effects")
	}
}

func TestIssueBanNilIdentityIsNotFound(t *testing.T) {
	h := newHarness()
	h.resolver = testResolver{resolveFn: func(context.Context, string) (*domain.ResolvedIdentity, error) {
		return nil, nil
	}}
	_, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Nobody", Reason: "x"})
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestIssueBanPersistenceFailure(t *testing.T) {
	h := newHarness()
	h.enforcer.online = true
	storeErr := errors.New("disk on fire")
	h.store.insertFn = func(context.Context, *domain.BanRecord) error { return storeErr }
	_, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "Griefing"})
	var persistence *PersistenceError
	if !errors.As(err, &persistence) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("wrapped store error must be reachable, got %v", err)
	}
	if h.enforcer.kicks != 0 {
		t.Fatal("enforcement must only run after durable persistence")
	}
}

func TestIssueBanKicksOnlineTarget(t *testing.T) {
	h := newHarness()
	h.enforcer.online = true
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "Griefing"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if h.enforcer.kicks != 1 {
		t.Fatalf("expected exactly one kick attempt, got %d", h.enforcer.kicks)
	}
	msg := h.enforcer.messages[0]
	if !strings.Contains(msg, "Griefing") {
		t.Fatalf("kick message must echo the reason: %q", msg)
	}
	if !strings.Contains(msg, "permanent") {
		t.Fatalf("kick message must state permanence: %q", msg)
	}
	if msg != ban.DisconnectMessage() {
		t.Fatal("kick message must come from the persisted record")
	}
}

func TestIssueBanOfflineTargetStillSucceeds(t *testing.T) {
	h := newHarness()
	h.enforcer.online = false
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "Griefing"})
	if err != nil {
		t.Fatalf("an offline target is not an error: %v", err)
	}
	if ban.ID == 0 {
		t.Fatal("record must still be persisted")
	}
}

func TestIssueBanNormalizesMappedAddress(t *testing.T) {
	h := newHarness()
	h.resolver = testResolver{resolveFn: func(_ context.Context, name string) (*domain.ResolvedIdentity, error) {
		return &domain.ResolvedIdentity{
			AccountID:   uuid.New(),
			Name:        name,
			LastAddress: netip.MustParseAddr("::ffff:192.0.2.5"),
		}, nil
	}}
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "x"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	block, ok := ban.AddressRange()
	if !ok {
		t.Fatal("expected an address range")
	}
	if block.Addr() != netip.MustParseAddr("192.0.2.5") || block.Bits() != 32 {
		t.Fatalf("mapped address must become its IPv4 /32, got %s", block)
	}
}

func TestIssueBanNoAddressMatchesOnAccountAlone(t *testing.T) {
	h := newHarness()
	h.resolver = testResolver{resolveFn: func(_ context.Context, name string) (*domain.ResolvedIdentity, error) {
		return &domain.ResolvedIdentity{AccountID: uuid.New(), Name: name}, nil
	}}
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "x"})
	if err != nil {
		t.Fatalf("an address-less identity is still bannable: %v", err)
	}
	if ban.AddressBase != nil || ban.HardwareID != nil {
		t.Fatal("no address or hardware id should be recorded")
	}
	if ban.TargetAccountID == nil {
		t.Fatal("account id is the sole criterion and must be present")
	}
}

func TestIssueBanContextualFieldsDegradeGracefully(t *testing.T) {
	h := newHarness()
	h.rounds = testRounds{}
	h.playtime = testPlaytime{totalFn: func(context.Context, uuid.UUID) (time.Duration, error) {
		return 0, errors.New("playtime backend down")
	}}
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "x"})
	if err != nil {
		t.Fatalf("contextual fetch failures must not abort issuance: %v", err)
	}
	if ban.RoundID != nil {
		t.Fatal("no active round means no round id")
	}
	if ban.PlaytimeAtIssuance != 0 {
		t.Fatal("failed playtime lookup degrades to zero")
	}
}

func TestIssueBanRecordsRoundAndPlaytime(t *testing.T) {
	h := newHarness()
	h.rounds = testRounds{id: 1337, ok: true}
	h.playtime = testPlaytime{totalFn: func(context.Context, uuid.UUID) (time.Duration, error) {
		return 90 * time.Hour, nil
	}}
	ban, err := h.service().IssueBan(context.Background(), IssueRequest{Target: "Alice", Reason: "x"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ban.RoundID == nil || *ban.RoundID != 1337 {
		t.Fatalf("expected round 1337, got %v", ban.RoundID)
	}
	if ban.PlaytimeAtIssuance != 90*time.Hour {
		t.Fatalf("expected recorded playtime, got %v", ban.PlaytimeAtIssuance)
	}
}

func TestIssueBanInvalidatesCache(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	if err := h.cache.Set(ctx, CacheNamespaceAccount, "some-account", time.Minute); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if _, err := h.service().IssueBan(ctx, IssueRequest{Target: "Alice", Reason: "x"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	hit, err := h.cache.Get(ctx, CacheNamespaceAccount, "some-account")
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if hit {
		t.Fatal("issuance must invalidate the account namespace")
	}
}
