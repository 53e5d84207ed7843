package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/marketplace-countdown/internal/listings/adapter"
)

// slotLimiter is the behaviour shared by both limiter implementations.
type slotLimiter interface {
	Acquire(ctx context.Context, key string, limit int) (bool, error)
	Release(ctx context.Context, key string) error
}

func limiters(t *testing.T) map[string]slotLimiter {
	t.Helper()
	client, _ := newTestRedis(t)
	return map[string]slotLimiter{
		"redis":  adapter.NewStreamLimiter(client.RDB),
		"memory": adapter.NewMemoryStreamLimiter(),
	}
}

func TestStreamLimiters(t *testing.T) {
	ctx := context.Background()

	for name, l := range limiters(t) {
		t.Run(name+"/admits up to the limit then rejects", func(t *testing.T) {
			key := "streams:" + name + ":a"
			for i := 0; i < 3; i++ {
				ok, err := l.Acquire(ctx, key, 3)
				require.NoError(t, err)
				assert.True(t, ok, "acquire %d", i+1)
			}

			ok, err := l.Acquire(ctx, key, 3)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run(name+"/release frees a slot", func(t *testing.T) {
			key := "streams:" + name + ":b"
			ok, err := l.Acquire(ctx, key, 1)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = l.Acquire(ctx, key, 1)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, l.Release(ctx, key))

			ok, err = l.Acquire(ctx, key, 1)
			require.NoError(t, err)
			assert.True(t, ok)
		})

		t.Run(name+"/release of an unheld key is harmless", func(t *testing.T) {
			key := "streams:" + name + ":c"
			require.NoError(t, l.Release(ctx, key))
			require.NoError(t, l.Release(ctx, key))

			ok, err := l.Acquire(ctx, key, 1)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStreamLimiter_SetsTTL(t *testing.T) {
	client, mr := newTestRedis(t)
	l := adapter.NewStreamLimiter(client.RDB)

	ok, err := l.Acquire(context.Background(), "streams:10.0.0.1", 5)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, adapter.StreamSlotTTL, mr.TTL("streams:10.0.0.1"))
}

func TestStreamLimiter_RedisDown(t *testing.T) {
	client, mr := newTestRedis(t)
	l := adapter.NewStreamLimiter(client.RDB)
	mr.Close()

	ok, err := l.Acquire(context.Background(), "streams:10.0.0.1", 5)

	require.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryStreamLimiter_Held(t *testing.T) {
	l := adapter.NewMemoryStreamLimiter()
	ctx := context.Background()

	_, _ = l.Acquire(ctx, "k", 5)
	_, _ = l.Acquire(ctx, "k", 5)
	assert.Equal(t, 2, l.Held("k"))

	require.NoError(t, l.Release(ctx, "k"))
	assert.Equal(t, 1, l.Held("k"))
}
