// Package config provides configuration loading using koanf.
// Precedence: environment variables override compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/marketplace-countdown/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Countdown CountdownConfig `koanf:"countdown"`

	// Infrastructure configurations
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Redis    RedisConfig    `koanf:"redis"`
	AWS      AWSConfig      `koanf:"aws"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// CountdownConfig holds countdown service configuration.
type CountdownConfig struct {
	HTTPPort        int           `koanf:"http_port"`
	TickInterval    time.Duration `koanf:"tick_interval"`
	CacheGrace      time.Duration `koanf:"cache_grace"`
	SeedFile        string        `koanf:"seed_file"` // YAML listings loaded into the in-memory store
	MaxStreamsPerIP int           `koanf:"max_streams_per_ip"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	Table    string        `koanf:"table"`    // Empty selects the in-memory store outside prod
	Timeout  time.Duration `koanf:"timeout"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Empty disables the deadline cache outside prod
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Countdown: CountdownConfig{
			HTTPPort:        8080,
			TickInterval:    domain.DefaultTickInterval,
			CacheGrace:      domain.DeadlineCacheGrace,
			MaxStreamsPerIP: domain.MaxStreamsPerIP,
		},

		DynamoDB: DynamoDBConfig{
			Timeout: domain.DynamoDBTimeout,
		},
		Redis: RedisConfig{
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
//
// Required keys missing → startup failure.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	// Delimiter: the first _ maps to . for nested config, so
	// COUNTDOWN_TICK_INTERVAL becomes countdown.tick_interval.
	err := k.Load(env.Provider("", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// sections are the nested config keys; anything else is top level
// (log_level, log_format, environment).
var sections = []string{"countdown", "dynamodb", "redis", "aws", "otel"}

func envKey(s string) string {
	key := strings.ToLower(s)
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	if cfg.IsLocal() {
		return nil
	}

	if cfg.Countdown.TickInterval < domain.MinTickInterval {
		return fmt.Errorf("%w: countdown.tick_interval must be at least %s", domain.ErrConfigRequired, domain.MinTickInterval)
	}

	if cfg.IsProd() {
		if cfg.DynamoDB.Table == "" {
			return fmt.Errorf("%w: dynamodb.table", domain.ErrConfigRequired)
		}
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
		}
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
