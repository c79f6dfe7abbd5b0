package catalog

import (
	"strings"
	"sync"
	"time"
)

// Cache key families used by the reader. Invalidation by substring relies on these
// prefixes staying stable.
const (
	cacheKeyCategories = "categories"
	cacheKeyAppCounts  = "category-app-counts"
	cacheKeyApps       = "apps"
)

func categoryAppsCacheKey(categoryID string) string {
	return "category-apps-" + categoryID
}

func appCacheKey(appID string) string {
	return "app-" + appID
}

type cacheEntry struct {
	value     any
	storedAt  time.Time
	expiresAt time.Time
}

// TTLCache is a keyed memoization store with per-entry expiry. Unlike the original
// single-threaded host this runs under concurrent handlers, so mutation is guarded
// by a mutex. The clock is injectable so tests can advance simulated time.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	clock   func() time.Time
}

// NewTTLCache constructs an empty cache. A nil clock defaults to time.Now.
func NewTTLCache(clock func() time.Time) *TTLCache {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		clock:   clock,
	}
}

// Set stores value under key with the given time to live, overwriting any existing
// entry for the same key.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
}

// Get returns the stored value for key. An expired entry behaves as a miss and is
// evicted. Absence is a normal outcome, never an error.
func (c *TTLCache) Get(key string) (any, bool) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Delete removes a single entry by exact key.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateMatching removes every entry whose key contains the given substring.
func (c *TTLCache) InvalidateMatching(substring string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.Contains(key, substring) {
			delete(c.entries, key)
		}
	}
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len reports the number of live entries, counting not-yet-evicted expired ones.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cacheLookup returns the entry for key when present, unexpired and of type T.
func cacheLookup[T any](c *TTLCache, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return value, true
}
