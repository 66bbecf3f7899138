package discovery

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long a resolved replica set is trusted.
const DefaultTTL = 5 * time.Minute

// entry pairs a replica set with the moment it was resolved. Entries are
// immutable once stored; Put swaps the whole pair.
type entry struct {
	replicas   []string
	resolvedAt time.Time
}

// CacheEntry is a read-only view of one cached resolution.
type CacheEntry struct {
	Service    string    `json:"service"`
	Replicas   []string  `json:"replicas"`
	ResolvedAt time.Time `json:"resolved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Fresh      bool      `json:"fresh"`
}

// Cache holds per-service replica sets with a fixed TTL. Expired entries are
// reported as absent but not evicted; the resolver overwrites them on the next
// successful lookup.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewCache creates a cache. A nil clock means time.Now; ttl <= 0 means DefaultTTL.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a copy of the replica set for service if it is younger than the TTL.
func (c *Cache) Get(service string) ([]string, bool) {
	c.mu.RLock()
	e, ok := c.entries[service]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.resolvedAt) >= c.ttl {
		return nil, false
	}
	return append([]string(nil), e.replicas...), true
}

// Put stores replicas for service stamped with the current time.
func (c *Cache) Put(service string, replicas []string) {
	e := entry{
		replicas:   append([]string(nil), replicas...),
		resolvedAt: c.now(),
	}

	c.mu.Lock()
	c.entries[service] = e
	c.mu.Unlock()
}

// Invalidate drops the entry for one service.
func (c *Cache) Invalidate(service string) {
	c.mu.Lock()
	delete(c.entries, service)
	c.mu.Unlock()
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Snapshot lists every stored entry sorted by service.
func (c *Cache) Snapshot() []CacheEntry {
	now := c.now()

	c.mu.RLock()
	out := make([]CacheEntry, 0, len(c.entries))
	for svc, e := range c.entries {
		expires := e.resolvedAt.Add(c.ttl)
		out = append(out, CacheEntry{
			Service:    svc,
			Replicas:   append([]string(nil), e.replicas...),
			ResolvedAt: e.resolvedAt,
			ExpiresAt:  expires,
			Fresh:      now.Before(expires),
		})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}
