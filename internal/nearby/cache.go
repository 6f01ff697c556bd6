package nearby

import (
	"sync"
	"time"

	"github.com/meetnearby/meetnearby/internal/profile"
)

type detailEntry struct {
	detail    profile.Detail
	fetchedAt time.Time
}

// DetailCache holds per-user detail projections with a time-to-live.
// Entries older than the TTL are treated as absent and refetched rather
// than reused. The cache is an owned object passed by reference into the
// fetcher; eviction happens on read, plus an explicit prune sweep.
type DetailCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]detailEntry
}

func NewDetailCache(ttl time.Duration) *DetailCache {
	return &DetailCache{
		ttl:     ttl,
		entries: make(map[string]detailEntry),
	}
}

// Get returns the cached detail for id if it is still within the TTL.
func (c *DetailCache) Get(id string, now time.Time) (profile.Detail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok || now.Sub(entry.fetchedAt) >= c.ttl {
		return profile.Detail{}, false
	}
	return entry.detail, true
}

// Valid reports whether id has a live entry without returning it.
func (c *DetailCache) Valid(id string, now time.Time) bool {
	_, ok := c.Get(id, now)
	return ok
}

func (c *DetailCache) Put(id string, d profile.Detail, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = detailEntry{detail: d, fetchedAt: now}
}

// Prune drops expired entries.
func (c *DetailCache) Prune(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.entries {
		if now.Sub(entry.fetchedAt) >= c.ttl {
			delete(c.entries, id)
		}
	}
}

func (c *DetailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
