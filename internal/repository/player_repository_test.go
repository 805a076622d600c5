package repository

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/novasector/server-bans/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPlayerRepoForTest(t *testing.T) PlayerRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Player{}); err != nil {
		t.Fatalf("migrate player: %v", err)
	}
	return NewPlayerRepository(db)
}

func seedPlayer(t *testing.T, repo PlayerRepository, name string) *domain.Player {
	t.Helper()
	addr := "2001:db8::1"
	hwid := "hw-1"
	now := time.Now().UTC()
	p := &domain.Player{
		AccountID:      uuid.New(),
		Name:           name,
		LastAddress:    &addr,
		LastHardwareID: &hwid,
		TotalPlaytime:  3 * time.Hour,
		FirstSeenAt:    now.Add(-48 * time.Hour),
		LastSeenAt:     now,
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return p
}

func TestPlayerRepositoryResolveByName(t *testing.T) {
	repo := newPlayerRepoForTest(t)
	p := seedPlayer(t, repo, "Alice")

	identity, err := repo.Resolve(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.AccountID != p.AccountID {
		t.Fatalf("expected account %s, got %s", p.AccountID, identity.AccountID)
	}
	if identity.LastAddress != netip.MustParseAddr("2001:db8::1") {
		t.Fatalf("expected the last-seen address, got %s", identity.LastAddress)
	}
	if identity.LastHardwareID == nil || *identity.LastHardwareID != "hw-1" {
		t.Fatal("expected the last-seen hardware id")
	}
}

func TestPlayerRepositoryResolveByAccountID(t *testing.T) {
	repo := newPlayerRepoForTest(t)
	p := seedPlayer(t, repo, "Alice")

	identity, err := repo.Resolve(context.Background(), p.AccountID.String())
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if identity.Name != "Alice" {
		t.Fatalf("expected Alice, got %q", identity.Name)
	}
}

func TestPlayerRepositoryResolveUnknown(t *testing.T) {
	repo := newPlayerRepoForTest(t)
	seedPlayer(t, repo, "Alice")

	if _, err := repo.Resolve(context.Background(), "Bob"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := repo.Resolve(context.Background(), uuid.NewString()); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("unknown uuid must also be not found, got %v", err)
	}
}

func TestPlayerRepositoryTotalPlaytime(t *testing.T) {
	repo := newPlayerRepoForTest(t)
	p := seedPlayer(t, repo, "Alice")

	got, err := repo.TotalPlaytime(context.Background(), p.AccountID)
	if err != nil {
		t.Fatalf("total playtime: %v", err)
	}
	if got != 3*time.Hour {
		t.Fatalf("expected 3h, got %v", got)
	}
}

func TestPlayerRepositoryTotalPlaytimeUntracked(t *testing.T) {
	repo := newPlayerRepoForTest(t)
	got, err := repo.TotalPlaytime(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("untracked account yields zero, not an error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero playtime, got %v", got)
	}
}

func TestPlayerRepositoryAddPlaytime(t *testing.T) {
	repo := newPlayerRepoForTest(t)
	ctx := context.Background()
	p := seedPlayer(t, repo, "Alice")

	if err := repo.AddPlaytime(ctx, p.AccountID, 30*time.Minute); err != nil {
		t.Fatalf("add playtime: %v", err)
	}
	got, err := repo.TotalPlaytime(ctx, p.AccountID)
	if err != nil {
		t.Fatalf("total playtime: %v", err)
	}
	if got != 3*time.Hour+30*time.Minute {
		t.Fatalf("expected 3h30m, got %v", got)
	}

	if err := repo.AddPlaytime(ctx, uuid.New(), time.Minute); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}
