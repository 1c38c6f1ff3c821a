package tenant

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache, err := NewCache(16, client, time.Minute)
	require.NoError(t, err)
	return cache
}

func TestCache_SetGet_L1Hit(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("cmp_%", []string{"cmp_1", "cmp_2"})

	names, ok := cache.Get("cmp_%")
	require.True(t, ok)
	assert.Equal(t, []string{"cmp_1", "cmp_2"}, names)
	assert.Equal(t, int64(1), cache.GetStats().L1Hits)
}

func TestCache_Get_L2FallbackAfterL1Purge(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("cmp_%", []string{"cmp_1"})
	cache.InvalidateAll()

	names, ok := cache.Get("cmp_%")
	require.True(t, ok)
	assert.Equal(t, []string{"cmp_1"}, names)
	assert.Equal(t, int64(1), cache.GetStats().L2Hits)
}

func TestCache_Get_MissWhenAbsent(t *testing.T) {
	cache := newTestCache(t)

	_, ok := cache.Get("nonexistent_%")
	assert.False(t, ok)
	assert.Equal(t, int64(1), cache.GetStats().Misses)
}

func TestCache_Invalidate(t *testing.T) {
	cache := newTestCache(t)

	cache.Set("cmp_%", []string{"cmp_1"})
	cache.Invalidate("cmp_%")

	_, ok := cache.Get("cmp_%")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsRemovedFromL1(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache, err := NewCache(16, client, time.Millisecond)
	require.NoError(t, err)

	cache.Set("cmp_%", []string{"cmp_1"})
	time.Sleep(5 * time.Millisecond)
	mr.FastForward(time.Second)

	_, ok := cache.Get("cmp_%")
	assert.False(t, ok)
}

func TestGlobToLike(t *testing.T) {
	assert.Equal(t, `cmp\_%`, globToLike("cmp_*"))
	assert.Equal(t, `cmp\_1`, globToLike("cmp_1"))
	assert.Equal(t, "%", globToLike("*"))
}
