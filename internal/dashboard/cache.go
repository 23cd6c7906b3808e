package dashboard

import (
	"sync"
	"time"
)

// cacheEntry holds one cached value with its expiry
type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a small in-process TTL cache for dashboard aggregates. Dashboard
// reads tolerate short staleness; the cache keeps repeated widget refreshes
// from hammering the aggregate queries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates a cache with the given TTL
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached value for key if present and not expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value under key for the cache TTL
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops one key
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
