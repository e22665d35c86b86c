package tmdb

import (
	"sync"
	"time"
)

type cacheEntry struct {
	url       string
	fetchedAt time.Time
}

// Cache memoises artwork lookups for a fixed TTL. An empty URL is a valid
// cached value meaning "no artwork available", so repeated negative lookups
// are avoided too. Expiry is checked lazily at read time; there is no
// background sweep. Concurrent misses for the same key are not deduplicated,
// the last store simply wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached URL for key. The second return is false for both
// unknown keys and expired entries.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found {
		return "", false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		return "", false
	}
	return entry.url, true
}

func (c *Cache) Set(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{url: url, fetchedAt: c.now()}
}
