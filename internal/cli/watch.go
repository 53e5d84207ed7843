package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
)

func newWatchCmd(e *env) *cobra.Command {
	var (
		deadline string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a live countdown until the deadline passes",
		Long: `Run a countdown engine in the terminal. One line is printed per tick
until the deadline passes or the command is interrupted.

Examples:
  countdownctl watch --deadline 2024-01-03T01:02:03Z
  countdownctl watch --deadline 1704243723000 --interval 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			var writeErr error

			h := countdown.Start(ctx, countdown.ParseDeadline(deadline), func(rem countdown.Remaining) {
				if writeErr != nil {
					return
				}
				if _, err := fmt.Fprintln(out, rem.String()); err != nil {
					writeErr = err
					cancel()
				}
			},
				countdown.WithClock(e.clock),
				countdown.WithTickInterval(interval),
				countdown.WithLogger(e.logger),
			)
			h.Wait()

			if writeErr != nil {
				return fmt.Errorf("write output: %w", writeErr)
			}
			if !h.Current().Expired {
				e.logger.Info("countdown interrupted")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (ISO-8601 or epoch milliseconds)")
	cmd.Flags().DurationVar(&interval, "interval", domain.DefaultTickInterval, "Tick interval")
	_ = cmd.MarkFlagRequired("deadline")

	return cmd
}
