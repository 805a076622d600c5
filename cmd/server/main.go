package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/novasector/server-bans/internal/app"
	"github.com/novasector/server-bans/internal/config"
	"github.com/novasector/server-bans/internal/console"
	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/service"
	"github.com/novasector/server-bans/internal/tools/common"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:   "server-bans",
		Short: "Ban issuance and enforcement service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.LoadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file")
	root.AddCommand(newServeCommand())
	root.AddCommand(newBanCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := newLogger()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					logger.Error("shutdown cleanup failed", "error", err)
				}
			}()
			return a.Run(ctx)
		},
	}
}

// newBanCommand wires a one-shot issuance against the configured store.
// This process holds no live session registry, so the kick is a guaranteed
// miss; the persisted record still takes effect on the target's next
// connection attempt.
func newBanCommand() *cobra.Command {
	return console.NewBanCommand(oneShotIssuer{}, nil)
}

// oneShotIssuer stands the app up for a single issuance and tears it down
// again, so `server-bans ban ...` works without a running serve process.
type oneShotIssuer struct{}

func (oneShotIssuer) IssueBan(ctx context.Context, req service.IssueRequest) (*domain.BanRecord, error) {
	logger := newLogger()
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()
	return a.BanService.IssueBan(ctx, req)
}

func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}
