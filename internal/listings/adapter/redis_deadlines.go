package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	redisclient "github.com/aelexs/marketplace-countdown/internal/redis"
)

const (
	// invalidMarker is cached for listings whose anchors resolve to no deadline.
	invalidMarker = "invalid"
	// invalidatedMarker is left by Invalidate. It reads as a miss and keeps
	// Set from writing until it expires.
	invalidatedMarker = "invalidated"
)

// DeadlineCache caches resolved listing deadlines in Redis as epoch
// milliseconds. Entries outlive the deadline by a grace period so that
// late viewers still hit the cache for the expired state.
//
// Set only fills absent keys (SET NX) and Invalidate replaces the entry with
// a short-lived marker instead of deleting it. A reader that loaded the old
// listing before a write therefore cannot cache the old deadline after the
// write's invalidation.
type DeadlineCache struct {
	cmd   redisclient.Cmdable
	grace time.Duration
}

// NewDeadlineCache creates a DeadlineCache. A non-positive grace uses
// domain.DeadlineCacheGrace.
func NewDeadlineCache(cmd redisclient.Cmdable, grace time.Duration) *DeadlineCache {
	if grace <= 0 {
		grace = domain.DeadlineCacheGrace
	}
	return &DeadlineCache{cmd: cmd, grace: grace}
}

// DeadlineKey returns the Redis key for a listing's deadline.
func DeadlineKey(kind domain.ListingKind, id domain.ListingID) string {
	return "deadline:" + string(kind) + ":" + id.String()
}

// Get returns the cached deadline. ok is false on a miss. A corrupt entry
// is treated as a miss.
func (c *DeadlineCache) Get(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (countdown.Deadline, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.deadline.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
	)

	val, err := c.cmd.Get(ctx, DeadlineKey(kind, id)).Result()
	if errors.Is(err, redisclient.Nil) {
		return countdown.Deadline{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return countdown.Deadline{}, false, fmt.Errorf("deadline cache get: %w", err)
	}

	switch val {
	case invalidatedMarker:
		return countdown.Deadline{}, false, nil
	case invalidMarker:
		return countdown.Deadline{}, true, nil
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt entries would block every later fill.
		_ = c.cmd.Del(ctx, DeadlineKey(kind, id)).Err()
		return countdown.Deadline{}, false, nil
	}
	return countdown.AtMillis(ms), true, nil
}

// Set caches d unless the key already holds an entry or an invalidation
// marker. The TTL is the time remaining until d plus grace; invalid
// deadlines get a short fixed TTL so a fixed listing is picked up soon.
func (c *DeadlineCache) Set(ctx context.Context, kind domain.ListingKind, id domain.ListingID, d countdown.Deadline, now time.Time) error {
	ctx, span := tracer.Start(ctx, "redis.deadline.set")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SETNX"),
	)

	val := invalidMarker
	ttl := domain.InvalidDeadlineCacheTTL
	if d.Valid() {
		val = strconv.FormatInt(d.UnixMilli(), 10)
		ttl = c.ttlFor(d, now)
	}

	stored, err := c.cmd.SetNX(ctx, DeadlineKey(kind, id), val, ttl).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deadline cache set: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.stored", stored))
	return nil
}

// Invalidate replaces the cached deadline with an invalidation marker that
// expires after domain.DeadlineInvalidatedTTL.
func (c *DeadlineCache) Invalidate(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error {
	ctx, span := tracer.Start(ctx, "redis.deadline.invalidate")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
	)

	if err := c.cmd.Set(ctx, DeadlineKey(kind, id), invalidatedMarker, domain.DeadlineInvalidatedTTL).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deadline cache invalidate: %w", err)
	}
	return nil
}

func (c *DeadlineCache) ttlFor(d countdown.Deadline, now time.Time) time.Duration {
	remaining := d.Time().Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return (remaining + c.grace).Truncate(time.Second)
}
