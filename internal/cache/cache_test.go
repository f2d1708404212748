package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	_, err := c.Get(context.Background(), "missing")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err := c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "b")
	assert.True(t, IsCacheMiss(err))
}

func newRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, DefaultConfig())
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = c.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))
}

func TestInvalidateProject(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	companyID, projectID := uuid.New(), uuid.New()

	require.NoError(t, c.Set(ctx, ProjectSummaryKey(companyID, projectID), []byte("s"), time.Minute))
	require.NoError(t, c.Set(ctx, ScheduleFeedKey(companyID, projectID), []byte("g"), time.Minute))

	require.NoError(t, InvalidateProject(ctx, c, companyID, projectID))

	_, err := c.Get(ctx, ProjectSummaryKey(companyID, projectID))
	assert.True(t, IsCacheMiss(err))
	_, err = c.Get(ctx, ScheduleFeedKey(companyID, projectID))
	assert.True(t, IsCacheMiss(err))
}
