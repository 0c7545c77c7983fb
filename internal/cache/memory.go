package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps recent dataset bodies in process memory.
// Bodies larger than maxItemBytes are not kept.
type MemoryCache struct {
	cache        *gocache.Cache
	maxItemBytes int
}

// NewMemoryCache creates a new memory cache. maxItemBytes <= 0 means no limit.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, maxItemBytes int) *MemoryCache {
	return &MemoryCache{
		cache:        gocache.New(defaultTTL, cleanupInterval),
		maxItemBytes: maxItemBytes,
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value; ttl 0 uses the default expiration
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if c.maxItemBytes > 0 && len(value) > c.maxItemBytes {
		return nil
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Len returns the number of live entries
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
