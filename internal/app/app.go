package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/novasector/server-bans/internal/config"
	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/http/handler"
	"github.com/novasector/server-bans/internal/http/router"
	"github.com/novasector/server-bans/internal/observability"
	"github.com/novasector/server-bans/internal/repository"
	"github.com/novasector/server-bans/internal/service"
	"github.com/novasector/server-bans/internal/sessions"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// App owns every long-lived component of the process and wires them
// together explicitly; nothing reaches for a global registry.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	Players       repository.PlayerRepository
	Bans          repository.BanRepository
	Sessions      *sessions.Registry
	Rounds        *sessions.RoundTracker
	BanService    *service.BanService
	Server        *http.Server
	Observability *observability.Runtime
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	defaultSeverity, err := domain.ParseSeverity(cfg.DefaultSeverity)
	if err != nil {
		return nil, fmt.Errorf("configured default severity: %w", err)
	}

	runtime, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&domain.Player{}, &domain.BanRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	var redisClient *redis.Client
	var cache service.BanCacheStore = service.NewInMemoryBanCacheStore()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cache = service.NewRedisBanCacheStore(redisClient, "ban_cache")
	}

	players := repository.NewPlayerRepository(db)
	bans := repository.NewBanRepository(db)
	registry := sessions.NewRegistry()
	rounds := sessions.NewRoundTracker()

	banService := service.NewBanService(
		players, players, rounds, bans, registry, cache, defaultSeverity, logger,
	)

	mux := router.NewRouter(router.Dependencies{
		BanHandler:     handler.NewBanHandler(banService),
		EnableOTelHTTP: cfg.OTELTracesEnabled,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Redis:         redisClient,
		Players:       players,
		Bans:          bans,
		Sessions:      registry,
		Rounds:        rounds,
		BanService:    banService,
		Server:        server,
		Observability: runtime,
	}, nil
}

// Run serves the admin API until ctx is canceled, then drains.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("admin api listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch cfg.DatabaseDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DatabaseDSN), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DatabaseDSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
