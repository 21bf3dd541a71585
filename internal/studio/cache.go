package studio

import (
	"sync"

	"atelier/internal/domain"
)

// ResultCache memoizes finished generations by fingerprint so a repeat
// request never pays for a second vendor call. Implementations must be
// safe for concurrent use.
type ResultCache interface {
	Get(fingerprint string) ([]domain.TryOnResult, bool)
	Set(fingerprint string, results []domain.TryOnResult)
}

// MemoryResultCache is the in-process implementation. Entries live until
// the process restarts.
type MemoryResultCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.TryOnResult
}

func NewMemoryResultCache() *MemoryResultCache {
	return &MemoryResultCache{entries: make(map[string][]domain.TryOnResult)}
}

func (c *MemoryResultCache) Get(fingerprint string) ([]domain.TryOnResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	results, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	out := make([]domain.TryOnResult, len(results))
	copy(out, results)
	return out, true
}

func (c *MemoryResultCache) Set(fingerprint string, results []domain.TryOnResult) {
	stored := make([]domain.TryOnResult, len(results))
	copy(stored, results)
	c.mu.Lock()
	c.entries[fingerprint] = stored
	c.mu.Unlock()
}

// Len reports the number of cached fingerprints.
func (c *MemoryResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
