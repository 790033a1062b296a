package llm

import (
	"sync"
	"time"
)

// cacheEntry represents a cached query suggestion.
type cacheEntry struct {
	expiry time.Time
	query  string
}

// queryCache provides thread-safe caching for generated queries.
type queryCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// newQueryCache creates a new cache with the specified TTL.
func newQueryCache(ttl time.Duration) *queryCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &queryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// get retrieves a query from the cache if it exists and hasn't expired.
func (c *queryCache) get(key string) (string, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return "", false
	}
	if time.Now().After(entry.expiry) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.query, true
}

// set stores a query in the cache.
func (c *queryCache) set(key, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		query:  query,
		expiry: time.Now().Add(c.ttl),
	}
}

// size returns the number of entries in the cache.
func (c *queryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
