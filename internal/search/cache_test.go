// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheRoundTrip(t *testing.T) {
	cache, err := NewQueryCache(4)
	require.NoError(t, err)

	refs := []ResultRef{{ID: "r1", Similarity: 0.9, Score: 0.8}}
	cache.Set("fp1", refs, time.Minute)

	got, ok := cache.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, refs, got)

	_, ok = cache.Get("fp2")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestQueryCacheTTLExpiry(t *testing.T) {
	cache, err := NewQueryCache(4)
	require.NoError(t, err)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.SetNowFunc(func() time.Time { return now })

	cache.Set("fp1", []ResultRef{{ID: "r1"}}, time.Minute)

	now = now.Add(59 * time.Second)
	_, ok := cache.Get("fp1")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = cache.Get("fp1")
	assert.False(t, ok, "entry past TTL is a miss")
	assert.Equal(t, 0, cache.Stats().Size, "expired entry is removed")
}

func TestQueryCacheFIFOEviction(t *testing.T) {
	cache, err := NewQueryCache(2)
	require.NoError(t, err)

	cache.Set("fp1", []ResultRef{{ID: "r1"}}, time.Minute)
	cache.Set("fp2", []ResultRef{{ID: "r2"}}, time.Minute)

	// Reading fp1 must not protect it: eviction is insertion-ordered.
	_, ok := cache.Get("fp1")
	require.True(t, ok)

	cache.Set("fp3", []ResultRef{{ID: "r3"}}, time.Minute)

	_, ok = cache.Get("fp1")
	assert.False(t, ok, "oldest inserted entry is evicted first")
	_, ok = cache.Get("fp2")
	assert.True(t, ok)
	_, ok = cache.Get("fp3")
	assert.True(t, ok)
}

func TestQueryCacheRefreshKeepsInsertionOrder(t *testing.T) {
	cache, err := NewQueryCache(2)
	require.NoError(t, err)

	cache.Set("fp1", []ResultRef{{ID: "r1"}}, time.Minute)
	cache.Set("fp2", []ResultRef{{ID: "r2"}}, time.Minute)
	cache.Set("fp1", []ResultRef{{ID: "r1-v2"}}, time.Minute)

	cache.Set("fp3", []ResultRef{{ID: "r3"}}, time.Minute)

	// fp1 was refreshed, not reinserted, so it is still the oldest.
	_, ok := cache.Get("fp1")
	assert.False(t, ok)
	got, ok := cache.Get("fp2")
	require.True(t, ok)
	assert.Equal(t, "r2", got[0].ID)
}

func TestQueryCacheInvalidateAndClear(t *testing.T) {
	cache, err := NewQueryCache(4)
	require.NoError(t, err)

	cache.Set("fp1", []ResultRef{{ID: "r1"}}, time.Minute)
	cache.Set("fp2", []ResultRef{{ID: "r2"}}, time.Minute)

	cache.Invalidate("fp1")
	_, ok := cache.Get("fp1")
	assert.False(t, ok)
	_, ok = cache.Get("fp2")
	assert.True(t, ok)

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
	_, ok = cache.Get("fp2")
	assert.False(t, ok)
}

func TestQueryCacheZeroTTLIsNoop(t *testing.T) {
	cache, err := NewQueryCache(4)
	require.NoError(t, err)

	cache.Set("fp1", []ResultRef{{ID: "r1"}}, 0)
	_, ok := cache.Get("fp1")
	assert.False(t, ok)
}

func TestQueryCacheRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewQueryCache(0)
	require.Error(t, err)
}

func TestFingerprintSensitivity(t *testing.T) {
	base := fingerprint("u1", "docker build cache", Options{Limit: 10})

	assert.Equal(t, base, fingerprint("u1", "  Docker   BUILD cache ", Options{Limit: 10}),
		"normalization collapses case and whitespace")
	assert.Equal(t,
		fingerprint("u1", "q", Options{Limit: 10, Tags: []string{"a", "b"}}),
		fingerprint("u1", "q", Options{Limit: 10, Tags: []string{"b", "a"}}),
		"tag order does not matter")

	assert.NotEqual(t, base, fingerprint("u2", "docker build cache", Options{Limit: 10}))
	assert.NotEqual(t, base, fingerprint("u1", "docker build", Options{Limit: 10}))
	assert.NotEqual(t, base, fingerprint("u1", "docker build cache", Options{Limit: 20}))
	assert.NotEqual(t, base, fingerprint("u1", "docker build cache", Options{Limit: 10, Tags: []string{"a"}}))
	assert.NotEqual(t, base, fingerprint("u1", "docker build cache", Options{Limit: 10, MinSimilarity: 0.5}))
}

func TestFingerprintUsesFullContent(t *testing.T) {
	// Long queries sharing a prefix must not collide.
	prefix := "how do i configure the connection pool for the analytics service "
	a := fingerprint("u1", prefix+"in staging", Options{Limit: 10})
	b := fingerprint("u1", prefix+"in production", Options{Limit: 10})
	assert.NotEqual(t, a, b)
}
