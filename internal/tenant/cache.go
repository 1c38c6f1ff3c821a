package tenant

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// CacheStats reports hit/miss counters for a Cache, split by tier.
type CacheStats struct {
	L1Hits int64
	L2Hits int64
	Misses int64
	Sets   int64
}

// Cache is a two-tier cache in front of Directory.List: an in-process LRU
// (L1) backed by Redis (L2), so repeated polling of the same pattern from
// cmd/server doesn't re-query pg_database on every call. It never changes
// List's externally observed result for longer than ttl.
type Cache struct {
	l1  *lru.Cache[string, cacheEntry]
	l2  *redis.Client
	ttl time.Duration

	stats CacheStats
}

type cacheEntry struct {
	names     []string
	expiresAt time.Time
}

// NewCache creates a Cache with an L1 of the given size and an optional
// Redis client for L2. redisClient may be nil to run L1-only.
func NewCache(l1Size int, redisClient *redis.Client, ttl time.Duration) (*Cache, error) {
	l1, err := lru.New[string, cacheEntry](l1Size)
	if err != nil {
		return nil, err
	}
	return &Cache{l1: l1, l2: redisClient, ttl: ttl}, nil
}

// Get returns the cached database names for pattern, if present and unexpired.
func (c *Cache) Get(pattern string) ([]string, bool) {
	if entry, ok := c.l1.Get(pattern); ok {
		if time.Now().Before(entry.expiresAt) {
			atomic.AddInt64(&c.stats.L1Hits, 1)
			return entry.names, true
		}
		c.l1.Remove(pattern)
	}

	if c.l2 == nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	raw, err := c.l2.Get(ctx, cacheKey(pattern)).Result()
	if err != nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		atomic.AddInt64(&c.stats.Misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.stats.L2Hits, 1)
	c.l1.Add(pattern, cacheEntry{names: names, expiresAt: time.Now().Add(c.ttl)})
	return names, true
}

// Set stores names for pattern in both tiers.
func (c *Cache) Set(pattern string, names []string) {
	atomic.AddInt64(&c.stats.Sets, 1)
	c.l1.Add(pattern, cacheEntry{names: names, expiresAt: time.Now().Add(c.ttl)})

	if c.l2 == nil {
		return
	}

	raw, err := json.Marshal(names)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.l2.Set(ctx, cacheKey(pattern), raw, c.ttl)
}

// Invalidate removes pattern from both tiers.
func (c *Cache) Invalidate(pattern string) {
	c.l1.Remove(pattern)
	if c.l2 == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.l2.Del(ctx, cacheKey(pattern))
}

// InvalidateAll clears the L1 tier entirely. L2 entries expire on their own TTL.
func (c *Cache) InvalidateAll() {
	c.l1.Purge()
}

// GetStats returns a snapshot of hit/miss counters.
func (c *Cache) GetStats() CacheStats {
	return CacheStats{
		L1Hits: atomic.LoadInt64(&c.stats.L1Hits),
		L2Hits: atomic.LoadInt64(&c.stats.L2Hits),
		Misses: atomic.LoadInt64(&c.stats.Misses),
		Sets:   atomic.LoadInt64(&c.stats.Sets),
	}
}

func cacheKey(pattern string) string {
	return "tenant:list:" + pattern
}
