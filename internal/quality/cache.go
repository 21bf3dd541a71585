package quality

import (
	"sync"
	"time"

	"atelier/internal/domain"
)

// Cache memoizes analysis partials so repeated submissions of the same image
// within the TTL skip the pixel work. The interface exists so a multi-instance
// deployment can swap in a shared store.
type Cache interface {
	Get(key string) (domain.AnalysisPartial, bool)
	Set(key string, partial domain.AnalysisPartial)
	Prune()
}

type ttlEntry struct {
	partial  domain.AnalysisPartial
	expires  time.Time
	lastUsed time.Time
}

// TTLCache is a process-local cache with lazy expiry and a bounded size.
// When full, the least recently used entry is evicted.
type TTLCache struct {
	mu         sync.Mutex
	entries    map[string]*ttlEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewTTLCache builds a cache with the given TTL and entry cap.
func NewTTLCache(ttl time.Duration, maxEntries int) *TTLCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &TTLCache{
		entries:    make(map[string]*ttlEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *TTLCache) Get(key string) (domain.AnalysisPartial, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return domain.AnalysisPartial{}, false
	}
	now := c.now()
	if now.After(e.expires) {
		delete(c.entries, key)
		return domain.AnalysisPartial{}, false
	}
	e.lastUsed = now
	return e.partial, true
}

func (c *TTLCache) Set(key string, partial domain.AnalysisPartial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key] = &ttlEntry{partial: partial, expires: now.Add(c.ttl), lastUsed: now}
	if len(c.entries) > c.maxEntries {
		c.pruneLocked(now)
	}
}

// Prune drops expired entries and enforces the size cap.
func (c *TTLCache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.now())
}

func (c *TTLCache) pruneLocked(now time.Time) {
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
		}
	}
	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.lastUsed.Before(oldest) {
				oldestKey = key
				oldest = e.lastUsed
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Len reports the current entry count.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ Cache = (*TTLCache)(nil)
