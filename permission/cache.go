package permission

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached permission list may be.
const DefaultCacheTTL = 300 * time.Second

type cacheKey struct {
	userID   string
	tenantID string
}

type cacheEntry struct {
	permissions []string
	expiresAt   time.Time
}

// Cache is a TTL map of (userID, tenantID) -> permission list. Staleness
// up to the TTL is accepted; correctness comes from the authoritative
// source behind every miss.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

// NewCache creates a Cache. A non-positive ttl selects [DefaultCacheTTL].
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Get returns the cached permission list, or (nil, false) when absent or
// expired. Expired entries are evicted on read.
func (c *Cache) Get(userID, tenantID string) ([]string, bool) {
	key := cacheKey{userID: userID, tenantID: tenantID}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	out := make([]string, len(entry.permissions))
	copy(out, entry.permissions)
	return out, true
}

// Set stores the permission list, overwriting any existing entry.
func (c *Cache) Set(userID, tenantID string, permissions []string) {
	stored := make([]string, len(permissions))
	copy(stored, permissions)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{userID: userID, tenantID: tenantID}] = cacheEntry{
		permissions: stored,
		expiresAt:   c.now().Add(c.ttl),
	}
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(userID, tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{userID: userID, tenantID: tenantID})
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
