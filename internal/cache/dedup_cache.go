// internal/cache/dedup_cache.go
package cache

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
)

// DedupCache keeps a bloom filter of the dedup keys already stored per
// campaign. The filter answers "definitely new" without touching the
// database; any possible hit falls back to the authoritative key preload.
// False positives only cost an extra preload, never a wrong rejection.
type DedupCache struct {
	mu           sync.RWMutex
	filters      map[string]*bloom.BloomFilter
	expectedKeys uint
	fpRate       float64
	hits         atomic.Int64
	misses       atomic.Int64
}

// NewDedupCache creates a dedup key cache. expectedKeys sizes each
// campaign's filter; fpRate is the target false-positive rate.
func NewDedupCache(expectedKeys uint, fpRate float64) *DedupCache {
	return &DedupCache{
		filters:      make(map[string]*bloom.BloomFilter),
		expectedKeys: expectedKeys,
		fpRate:       fpRate,
	}
}

// Scope identifies one filter: the campaign plus the field set the keys are
// built from. Changing the dedup fields changes the key space entirely.
func Scope(campaignID string, fieldIDs []string) string {
	return campaignID + "|" + strings.Join(fieldIDs, ",")
}

// Warm reports whether the scope has been seeded since process start.
func (c *DedupCache) Warm(scope string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.filters[scope]
	return ok
}

// AnyMightContain reports whether any of the keys possibly exists in the
// scope. A false result is definitive: none of the keys has been added.
func (c *DedupCache) AnyMightContain(scope string, keys []string) bool {
	c.mu.RLock()
	filter, ok := c.filters[scope]
	c.mu.RUnlock()
	if !ok {
		return true // cold cache, caller must preload
	}

	for _, key := range keys {
		if filter.TestString(key) {
			c.hits.Add(1)
			observer.IncDedupCacheCheck("possible_hit")
			return true
		}
	}
	c.misses.Add(1)
	observer.IncDedupCacheCheck("miss")
	return false
}

// Seed resets the scope's filter to exactly the given key set.
func (c *DedupCache) Seed(scope string, keys map[string]struct{}) {
	filter := bloom.NewWithEstimates(c.expectedKeys, c.fpRate)
	for key := range keys {
		filter.AddString(key)
	}

	c.mu.Lock()
	c.filters[scope] = filter
	c.mu.Unlock()
}

// InvalidateCampaign drops every filter of the campaign except the scope
// named keep, forcing the next import on the dropped scopes back to the
// authoritative preload. Pass keep == "" to drop them all. Required whenever
// contacts reach storage without going through a filter: an import with
// deduplication disabled, or a field edit that changes stored key material.
func (c *DedupCache) InvalidateCampaign(campaignID, keep string) {
	prefix := campaignID + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for scope := range c.filters {
		if scope != keep && strings.HasPrefix(scope, prefix) {
			delete(c.filters, scope)
		}
	}
}

// Add records keys that were committed to storage after the seed.
func (c *DedupCache) Add(scope string, keys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	filter, ok := c.filters[scope]
	if !ok {
		return
	}
	for _, key := range keys {
		filter.AddString(key)
	}
}

// Stats returns hit/miss counts of the fast-path checks.
func (c *DedupCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
