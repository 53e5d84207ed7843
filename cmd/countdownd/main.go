// Package main is the entrypoint for the countdown service.
// countdownd serves listing countdown snapshots and live countdown streams.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aelexs/marketplace-countdown/internal/config"
	"github.com/aelexs/marketplace-countdown/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "countdownd",
		PortFromConfig: func(cfg *config.Config) int { return cfg.Countdown.HTTPPort },
		Setup:          setup,
	}, nil)
}
