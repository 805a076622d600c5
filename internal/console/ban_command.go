// Package console hosts the administrator-facing commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novasector/server-bans/internal/domain"
	"github.com/novasector/server-bans/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// BanIssuer is the slice of the ban service the command drives.
type BanIssuer interface {
	IssueBan(ctx context.Context, req service.IssueRequest) (*domain.BanRecord, error)
}

// NewBanCommand builds the `ban <target> <reason> [minutes [severity]]`
// command. requestedBy is nil for the bare server console. The issuance is
// awaited in RunE so a failure always reaches the command's output instead
// of vanishing in a detached goroutine.
func NewBanCommand(issuer BanIssuer, requestedBy *uuid.UUID) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ban <target> <reason> [minutes [severity]]",
		Short: "Ban a player by name or account id",
		Long: "Bans a player from the server and kicks them if they are online.\n" +
			"A duration of 0 minutes (or no duration) makes the ban permanent.",
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.IssueRequest{
				RequestedBy: requestedBy,
				Target:      args[0],
				Reason:      args[1],
			}
			if len(args) >= 3 {
				req.DurationToken = args[2]
			}
			if len(args) == 4 {
				req.SeverityToken = args[3]
			}

			ban, err := issuer.IssueBan(cmd.Context(), req)
			if err != nil {
				return reportIssueError(cmd, err)
			}

			if ban.ExpiresAt == nil {
				cmd.Printf("Banned %s with reason %q permanently.\n", args[0], ban.Reason)
			} else {
				cmd.Printf("Banned %s with reason %q until %s.\n",
					args[0], ban.Reason, ban.ExpiresAt.UTC().Format(time.RFC1123))
			}
			return nil
		},
		ValidArgsFunction: banCompletion,
	}
	return cmd
}

func reportIssueError(cmd *cobra.Command, err error) error {
	var invalid *service.InvalidArgumentError
	switch {
	case errors.As(err, &invalid):
		// Let cobra append the usage text after the message.
		return err
	case errors.Is(err, service.ErrTargetNotFound):
		cmd.SilenceUsage = true
		return fmt.Errorf("unable to find a player with that name or id")
	default:
		var persistence *service.PersistenceError
		if errors.As(err, &persistence) {
			cmd.SilenceUsage = true
			return fmt.Errorf("the ban was NOT recorded: %w", persistence.Err)
		}
		cmd.SilenceUsage = true
		return err
	}
}

func banCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 2:
		return []string{
			"0\tpermanent",
			"1440\t1 day",
			"4320\t3 days",
			"10080\t1 week",
			"20160\t2 weeks",
			"43800\t1 month",
		}, cobra.ShellCompDirectiveNoFileComp
	case 3:
		options := make([]string, 0, 4)
		for _, s := range domain.Severities() {
			options = append(options, string(s))
		}
		return options, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
