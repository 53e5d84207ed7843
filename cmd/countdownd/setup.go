package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apiv1 "github.com/aelexs/marketplace-countdown/api/v1"
	"github.com/aelexs/marketplace-countdown/internal/config"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/dynamo"
	"github.com/aelexs/marketplace-countdown/internal/listings/adapter"
	"github.com/aelexs/marketplace-countdown/internal/listings/app"
	"github.com/aelexs/marketplace-countdown/internal/listings/port"
	"github.com/aelexs/marketplace-countdown/internal/redis"
	"github.com/aelexs/marketplace-countdown/internal/server"
)

// setup is the countdownd composition root. It picks the listing store and
// cache for the environment, builds the countdown service and mounts the
// HTTP API.
func setup(ctx context.Context, deps server.SetupDeps) (server.CleanupFunc, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Listing store.
	store, err := createListingStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("countdownd setup: %w", err)
	}

	// 2. Deadline cache + stream limiter.
	var (
		cache       app.DeadlineCache
		limiter     app.StreamLimiter = adapter.NewMemoryStreamLimiter()
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		if err := redisClient.Ping(ctx); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("countdownd setup: %w", err)
		}
		cache = adapter.NewDeadlineCache(redisClient.RDB, cfg.Countdown.CacheGrace)
		limiter = adapter.NewStreamLimiter(redisClient.RDB)
	} else {
		logger.Info("redis not configured, deadline cache disabled and stream cap is per instance")
	}

	// 3. Countdown service.
	svc := app.NewCountdownService(app.CountdownServiceConfig{
		Store:           store,
		Cache:           cache,
		Limiter:         limiter,
		Clock:           domain.RealClock{},
		TickInterval:    cfg.Countdown.TickInterval,
		MaxStreamsPerIP: cfg.Countdown.MaxStreamsPerIP,
		Logger:          logger,
	})

	// 4. HTTP API.
	handler := port.NewHandler(svc, port.HandlerConfig{
		TickInterval: cfg.Countdown.TickInterval,
		PingInterval: domain.StreamPingInterval,
		OpenAPI:      apiv1.Spec,
		Logger:       logger,
	})
	deps.HTTPMux.Handle("/", handler.Routes())

	logger.InfoContext(ctx, "countdown service initialized",
		slog.Duration("tick_interval", cfg.Countdown.TickInterval),
		slog.Int("max_streams_per_ip", cfg.Countdown.MaxStreamsPerIP),
	)

	cleanup := func(ctx context.Context) error {
		err := handler.Shutdown(ctx)
		if redisClient != nil {
			err = errors.Join(err, redisClient.Close())
		}
		return err
	}

	return cleanup, nil
}

// listingsTable is the default table name; DYNAMODB_TABLE overrides it.
const listingsTable = "listing_timers"

// createListingStore returns the store for the environment.
// DynamoDB when a table is configured (always in prod); otherwise the
// in-memory store, optionally seeded from countdown.seed_file.
func createListingStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app.ListingStore, error) {
	if cfg.DynamoDB.Table != "" || cfg.DynamoDB.Endpoint != "" {
		table := cfg.DynamoDB.Table
		if table == "" {
			table = listingsTable
		}
		endpoint := cfg.DynamoDB.Endpoint
		if endpoint == "" {
			endpoint = cfg.AWS.Endpoint
		}
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Endpoint: endpoint,
			Region:   cfg.AWS.Region,
			Timeout:  cfg.DynamoDB.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create dynamo client: %w", err)
		}
		logger.Info("using DynamoDB listing store", slog.String("table", table))
		return adapter.NewDynamoListingStore(client.DB, table), nil
	}

	var seed []domain.Listing
	if cfg.Countdown.SeedFile != "" {
		var err error
		seed, err = adapter.LoadSeedFile(cfg.Countdown.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load listing seed: %w", err)
		}
	}
	logger.Info("using in-memory listing store", slog.Int("seeded", len(seed)))
	return adapter.NewMemoryListingStore(seed...), nil
}
