// Package cli implements the countdownctl command line.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/observability"
)

// env carries what subcommands share.
type env struct {
	clock  domain.Clock
	logger *slog.Logger
}

// NewRootCmd builds the countdownctl command tree. clock is the time source
// for local computations.
func NewRootCmd(clock domain.Clock) *cobra.Command {
	var logLevel string
	e := &env{clock: clock, logger: slog.Default()}

	rootCmd := &cobra.Command{
		Use:   "countdownctl",
		Short: "Marketplace countdown tool",
		Long: `countdownctl computes the time remaining until a deadline, runs a live
countdown in the terminal, or follows a listing's countdown stream on a
running countdownd.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.logger = observability.InitLogger(observability.LogConfig{
				Level:       logLevel,
				Format:      "text",
				ServiceName: "countdownctl",
				Environment: "cli",
				Output:      cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRemainingCmd(e))
	rootCmd.AddCommand(newWatchCmd(e))
	rootCmd.AddCommand(newStreamCmd(e))

	return rootCmd
}

// Execute runs the root command with the real clock.
func Execute(ctx context.Context) error {
	return NewRootCmd(domain.RealClock{}).ExecuteContext(ctx)
}
