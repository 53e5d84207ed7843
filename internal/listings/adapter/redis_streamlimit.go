package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	redisclient "github.com/aelexs/marketplace-countdown/internal/redis"
)

// acquireScript increments the slot counter and refreshes its TTL, then
// rolls the increment back if the limit is exceeded. The TTL bounds the
// damage when an instance dies without releasing its slots.
const acquireScript = `
local count = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
if count > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`

// releaseScript decrements the counter without letting it go negative.
const releaseScript = `
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count <= 1 then
  redis.call('DEL', KEYS[1])
  return 0
end
return redis.call('DECR', KEYS[1])
`

// StreamSlotTTL is how long an abandoned slot counter survives.
const StreamSlotTTL = time.Hour

// StreamLimiter counts concurrent streams per key in Redis so the cap holds
// across service instances. Redis errors deny the stream (fail closed).
type StreamLimiter struct {
	cmd redisclient.Cmdable
}

// NewStreamLimiter creates a StreamLimiter that uses cmd for Redis operations.
func NewStreamLimiter(cmd redisclient.Cmdable) *StreamLimiter {
	return &StreamLimiter{cmd: cmd}
}

// Acquire reserves one slot under key. Returns (false, nil) when limit slots
// are already held.
func (l *StreamLimiter) Acquire(ctx context.Context, key string, limit int) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.streams.acquire")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVAL"),
	)

	ok, err := l.cmd.Eval(ctx, acquireScript, []string{key}, limit, int(StreamSlotTTL.Seconds())).Int64()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("stream slot acquire %q: %w", key, err)
	}
	return ok == 1, nil
}

// Release returns one slot under key.
func (l *StreamLimiter) Release(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "redis.streams.release")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVAL"),
	)

	if err := l.cmd.Eval(ctx, releaseScript, []string{key}).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("stream slot release %q: %w", key, err)
	}
	return nil
}

// MemoryStreamLimiter is the single-instance StreamLimiter used when no
// Redis is configured.
type MemoryStreamLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryStreamLimiter creates an empty MemoryStreamLimiter.
func NewMemoryStreamLimiter() *MemoryStreamLimiter {
	return &MemoryStreamLimiter{counts: make(map[string]int)}
}

// Acquire reserves one slot under key.
func (l *MemoryStreamLimiter) Acquire(_ context.Context, key string, limit int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[key] >= limit {
		return false, nil
	}
	l.counts[key]++
	return true, nil
}

// Release returns one slot under key.
func (l *MemoryStreamLimiter) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts[key] <= 1 {
		delete(l.counts, key)
		return nil
	}
	l.counts[key]--
	return nil
}

// Held reports the slots currently held under key.
func (l *MemoryStreamLimiter) Held(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[key]
}
