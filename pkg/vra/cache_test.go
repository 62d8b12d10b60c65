package vra_test

import (
	"context"
	"testing"
	"time"

	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := vra.NewMemoryCache(10)
	ctx := context.Background()

	entry := &vra.CacheEntry{
		Data:      []byte(`{"layout":{}}`),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      "abc123",
	}

	require.NoError(t, cache.Set(ctx, "schema:cat-1", entry))

	retrieved, err := cache.Get(ctx, "schema:cat-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)
	assert.True(t, cache.Has(ctx, "schema:cat-1"))
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := vra.NewMemoryCache(10)

	_, err := cache.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, vra.ErrCacheKeyNotFound)
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := vra.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", &vra.CacheEntry{
		Data:      []byte("stale"),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}))

	assert.False(t, cache.Has(ctx, "key1"))

	_, err := cache.Get(ctx, "key1")
	require.ErrorIs(t, err, vra.ErrCacheEntryExpired)
	assert.Equal(t, 0, cache.Len(), "expired entries are dropped on read")
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := vra.NewMemoryCache(2)
	ctx := context.Background()
	live := time.Now().Add(time.Hour)

	require.NoError(t, cache.Set(ctx, "a", &vra.CacheEntry{Data: []byte("a"), ExpiresAt: live}))
	require.NoError(t, cache.Set(ctx, "b", &vra.CacheEntry{Data: []byte("b"), ExpiresAt: live}))

	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "c", &vra.CacheEntry{Data: []byte("c"), ExpiresAt: live}))

	assert.True(t, cache.Has(ctx, "a"))
	assert.False(t, cache.Has(ctx, "b"))
	assert.True(t, cache.Has(ctx, "c"))
}

func TestMemoryCache_DeleteClearCleanup(t *testing.T) {
	t.Parallel()

	cache := vra.NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "live", &vra.CacheEntry{Data: []byte("x"), ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, cache.Set(ctx, "stale", &vra.CacheEntry{Data: []byte("y"), ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, cache.Set(ctx, "forever", &vra.CacheEntry{Data: []byte("z")}))
	assert.Equal(t, 3, cache.Len())

	cache.Cleanup()
	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, "forever"))

	require.NoError(t, cache.Delete(ctx, "live"))
	assert.False(t, cache.Has(ctx, "live"))

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestCacheManager(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := vra.NewCacheManager(vra.NewMemoryCache(10), &vra.CacheOptions{DefaultTTL: time.Hour})

	_, err := manager.Get(ctx, "schema:cat-1")
	require.Error(t, err)

	require.NoError(t, manager.Set(ctx, "schema:cat-1", []byte("{}"), 0))

	data, err := manager.Get(ctx, "schema:cat-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)

	require.NoError(t, manager.Invalidate(ctx, "schema:cat-1"))

	_, err = manager.Get(ctx, "schema:cat-1")
	require.Error(t, err)

	stats := manager.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 1.0/3.0, stats.GetHitRate(), 0.0001)
}

func TestCacheManager_NilCacheDisablesCaching(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := vra.NewCacheManager(nil, nil)

	require.NoError(t, manager.Set(ctx, "key", []byte("value"), 0))

	_, err := manager.Get(ctx, "key")
	require.ErrorIs(t, err, vra.ErrCacheDisabled)
}

func TestCacheStats_GetHitRate_NoTraffic(t *testing.T) {
	t.Parallel()

	stats := &vra.CacheStats{}
	assert.InDelta(t, 0.0, stats.GetHitRate(), 0)
}

func TestCacheEntry_Expired(t *testing.T) {
	t.Parallel()

	assert.False(t, (&vra.CacheEntry{}).Expired(), "zero expiry never expires")
	assert.True(t, (&vra.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}).Expired())
	assert.False(t, (&vra.CacheEntry{ExpiresAt: time.Now().Add(time.Minute)}).Expired())
}
