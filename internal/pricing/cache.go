package pricing

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores resolved rates. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(key string) (Rate, bool)
	Put(key string, value Rate, ttl time.Duration)
}

// cleanupInterval is how often the janitor sweeps expired entries.
const cleanupInterval = 10 * time.Minute

// MemoryCache is an in-process Cache with per-entry expiry.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an empty cache. Entries never expire unless Put
// is given a positive ttl.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns a live entry.
func (c *MemoryCache) Get(key string) (Rate, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return Rate{}, false
	}
	rate, ok := v.(Rate)
	return rate, ok
}

// Put stores value for ttl. A non-positive ttl never expires.
func (c *MemoryCache) Put(key string, value Rate, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.items.Set(key, value, ttl)
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.items.DeleteExpired()
	return c.items.ItemCount()
}

// CachedLookup serves successful results from a Cache. Failures are
// never cached.
type CachedLookup struct {
	next  Lookup
	cache Cache
	ttl   time.Duration
}

// NewCachedLookup wraps next with cache.
func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: cache, ttl: ttl}
}

func (c *CachedLookup) Lookup(ctx context.Context, service, sku, region string) (Rate, error) {
	key := CacheKey(service, sku, region)
	if rate, ok := c.cache.Get(key); ok {
		return rate, nil
	}
	rate, err := c.next.Lookup(ctx, service, sku, region)
	if err != nil {
		return Rate{}, err
	}
	c.cache.Put(key, rate, c.ttl)
	return rate, nil
}

// CacheKey is the cache key for a (service, sku, region) triple.
func CacheKey(service, sku, region string) string {
	return service + "|" + sku + "|" + region
}
