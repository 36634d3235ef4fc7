package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopscope/shopscope/pkg/domain"
)

// Cache is a process-wide TTL cache for per-source search results, keyed by
// (source, query, limit). Expiry is checked lazily on read, there is no
// background sweep. Injected into the orchestrator so multiple orchestrators
// never share state by accident.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time // test hook
}

type cacheEntry struct {
	items   []domain.Item
	expires time.Time
}

// NewCache creates an empty result cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

func cacheKey(sourceName, query string, limit int) string {
	return fmt.Sprintf("%s|%s|%d", sourceName, query, limit)
}

// Get returns the cached items for the key when present and not expired.
// Expired entries are removed on the spot.
func (c *Cache) Get(sourceName, query string, limit int) ([]domain.Item, bool) {
	key := cacheKey(sourceName, query, limit)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.items, true
}

// Set stores items under the key with the given TTL; non-positive TTL disables caching
func (c *Cache) Set(sourceName, query string, limit int, items []domain.Item, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	key := cacheKey(sourceName, query, limit)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{items: items, expires: c.now().Add(ttl)}
}

// Len reports the number of stored entries, including not-yet-collected expired ones
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
