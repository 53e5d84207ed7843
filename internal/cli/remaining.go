package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
)

func newRemainingCmd(e *env) *cobra.Command {
	var (
		deadline string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "remaining",
		Short: "Print the time remaining until a deadline",
		Long: `Print the time remaining until a deadline once.

The deadline may be an ISO-8601 timestamp or epoch milliseconds. An
unparseable deadline prints "expired".

Examples:
  countdownctl remaining --deadline 2024-01-03T01:02:03Z
  countdownctl remaining --deadline 1704243723000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := countdown.ParseDeadline(deadline)
			rem := countdown.Compute(d, e.clock.Now())
			if !d.Valid() {
				e.logger.Warn("deadline could not be parsed", "deadline", deadline)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				return enc.Encode(struct {
					Remaining countdown.Remaining `json:"remaining"`
					Display   countdown.Display   `json:"display"`
				}{rem, rem.Display()})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), rem.String())
			return err
		},
	}

	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (ISO-8601 or epoch milliseconds)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print remaining and display as JSON")
	_ = cmd.MarkFlagRequired("deadline")

	return cmd
}
