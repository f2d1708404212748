package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both backends must satisfy the limiter interface: serve falls back to
// the token bucket when the Redis limiter cannot be built.
var (
	_ RateLimiter = (*TokenBucket)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)
	defer tb.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := tb.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d", i)
		assert.Equal(t, 3, info.Limit)
	}

	info, err := tb.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
}

func TestTokenBucketIsolatesKeys(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)
	defer tb.Close()
	ctx := context.Background()

	info, err := tb.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = tb.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	info, err = tb.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func newRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter, err := NewRedisRateLimiter(client, limit, window)
	require.NoError(t, err)
	return limiter, mr
}

func TestRedisLimiterEnforcesLimit(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 2, time.Minute)
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 1, info.Remaining)

	info, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)

	info, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	mr.FastForward(2 * time.Minute)

	info, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisLimiterReset(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "10.0.0.3")
	require.NoError(t, err)

	require.NoError(t, limiter.Reset(ctx, "10.0.0.3"))

	info, err := limiter.Allow(ctx, "10.0.0.3")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}
