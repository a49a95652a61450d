// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package search

import (
	"sync"
	"time"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// ResultRef is a cached pointer to a ranked hit: the record id plus the
// scores computed when the search ran. Entries hold references rather
// than record snapshots to bound cache memory; a hit re-reads current
// record content from the store.
type ResultRef struct {
	ID               string
	Similarity       float64
	KeywordRelevance float64
	RecencyBoost     float64
	Satisfaction     float64
	Score            float64
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type cacheEntry struct {
	refs      []ResultRef
	expiresAt time.Time
}

// QueryCache memoizes search results by query fingerprint. It is
// capacity-bounded with FIFO eviction: when full, the oldest inserted
// entry is dropped regardless of how recently it was read. FIFO is the
// simplest policy that is correct here; search result TTLs are short
// enough that recency tracking buys little.
//
// Safe for concurrent use. Capacity is enforced exactly under the lock.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	order    []string // insertion order, oldest first
	capacity int
	hits     int64
	misses   int64
	nowFunc  func() time.Time
}

// NewQueryCache creates a cache holding at most capacity entries.
func NewQueryCache(capacity int) (*QueryCache, error) {
	if capacity <= 0 {
		return nil, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"query cache capacity must be positive, got %d", capacity)
	}
	return &QueryCache{
		entries:  make(map[string]cacheEntry, capacity),
		capacity: capacity,
		nowFunc:  time.Now,
	}, nil
}

// SetNowFunc overrides the time source (for testing).
func (c *QueryCache) SetNowFunc(fn func() time.Time) {
	c.mu.Lock()
	c.nowFunc = fn
	c.mu.Unlock()
}

// Get returns the cached refs for a fingerprint. An expired entry is
// removed and counts as a miss.
func (c *QueryCache) Get(fp string) ([]ResultRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fp]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.nowFunc().After(entry.expiresAt) {
		c.removeLocked(fp)
		c.misses++
		return nil, false
	}

	c.hits++
	refs := make([]ResultRef, len(entry.refs))
	copy(refs, entry.refs)
	return refs, true
}

// Set stores refs under a fingerprint with the given TTL, evicting the
// oldest entry if the cache is full. A non-positive TTL is a no-op.
func (c *QueryCache) Set(fp string, refs []ResultRef, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[fp]; ok {
		// Refresh in place; insertion order is unchanged.
		c.entries[fp] = cacheEntry{refs: cloneRefs(refs), expiresAt: c.nowFunc().Add(ttl)}
		return
	}

	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[fp] = cacheEntry{refs: cloneRefs(refs), expiresAt: c.nowFunc().Add(ttl)}
	c.order = append(c.order, fp)
}

// Invalidate drops a single fingerprint.
func (c *QueryCache) Invalidate(fp string) {
	c.mu.Lock()
	c.removeLocked(fp)
	c.mu.Unlock()
}

// Clear drops every entry. Hit and miss counters are preserved.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry, c.capacity)
	c.order = c.order[:0]
	c.mu.Unlock()
}

// Stats returns current size and cumulative hit/miss counts.
func (c *QueryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
}

// removeLocked deletes a fingerprint from the map and the FIFO order.
// The caller must hold c.mu.
func (c *QueryCache) removeLocked(fp string) {
	if _, ok := c.entries[fp]; !ok {
		return
	}
	delete(c.entries, fp)
	for i, key := range c.order {
		if key == fp {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func cloneRefs(refs []ResultRef) []ResultRef {
	out := make([]ResultRef, len(refs))
	copy(out, refs)
	return out
}
