// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// CachingEmbedder wraps an Embedder with an in-process LRU keyed by
// model and prepared text, so re-embedding identical content never
// hits the upstream service twice.
type CachingEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Embedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps inner with a cache of at most size entries.
func NewCachingEmbedder(inner Embedder, size int) (*CachingEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeCacheFailure, "creating embedding cache")
	}
	return &CachingEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachingEmbedder) Name() string    { return c.inner.Name() }
func (c *CachingEmbedder) Model() string   { return c.inner.Model() }
func (c *CachingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *CachingEmbedder) Close() error    { return c.inner.Close() }

// CacheStats returns cumulative hit and miss counts.
func (c *CachingEmbedder) CacheStats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	prepared, err := PrepareInput(text)
	if err != nil {
		return nil, err
	}

	key := cacheKey(c.inner.Model(), prepared)
	if vec, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return cloneVector(vec), nil
	}
	c.misses.Add(1)

	vec, err := c.inner.Embed(ctx, prepared)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneVector(vec))
	return vec, nil
}

// EmbedBatch serves cached entries locally and forwards only the
// misses upstream, reassembling results in input order.
func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		prepared, err := PrepareInput(text)
		if err != nil {
			return nil, recallerr.With(err, recallerr.Field("batch_index", i))
		}
		key := cacheKey(c.inner.Model(), prepared)
		if vec, ok := c.cache.Get(key); ok {
			c.hits.Add(1)
			results[i] = cloneVector(vec)
			continue
		}
		c.misses.Add(1)
		missTexts = append(missTexts, prepared)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			idx := missIdx[j]
			results[idx] = vec
			c.cache.Add(cacheKey(c.inner.Model(), missTexts[j]), cloneVector(vec))
		}
	}

	return results, nil
}

func cacheKey(model, prepared string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prepared))
	return hex.EncodeToString(h.Sum(nil))
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
