// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

// Package search orchestrates query embedding, vector retrieval,
// multi-signal ranking, and result caching.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/recall-dev/recall/internal/provider"
	"github.com/recall-dev/recall/internal/store"
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// Options narrows a single search. Zero values fall back to the
// service defaults.
type Options struct {
	// Limit caps the number of results returned.
	Limit int
	// MinSimilarity excludes candidates below this raw cosine
	// similarity before ranking. A candidate exactly at the threshold
	// is included. Zero means "use the service default": an explicit
	// zero threshold cannot be requested per call when the configured
	// default is higher. Callers needing an unfiltered search should
	// run against a service configured with a zero default, or pass a
	// small negative threshold such as -1 to admit every candidate.
	MinSimilarity float64
	// Tags requires every result to carry all listed tags.
	Tags []string
	// Outcome, when set, keeps only records with that outcome.
	Outcome store.Outcome
	// Since and Until bound record creation time (inclusive).
	Since time.Time
	Until time.Time
}

// Config holds service-level tunables.
type Config struct {
	// Weights for the hybrid ranker. Zero value means DefaultWeights.
	Weights Weights
	// DefaultLimit applies when Options.Limit is zero.
	DefaultLimit int
	// DefaultMinSimilarity applies when Options.MinSimilarity is zero.
	DefaultMinSimilarity float64
	// OversampleFactor widens the store query so post-ranking metadata
	// filters still leave enough results to fill the limit.
	OversampleFactor int
	// CacheTTL bounds how long a cached result stays valid.
	CacheTTL time.Duration
	// CacheCapacity bounds the number of cached queries.
	CacheCapacity int
	// Timeout is the overall budget for one search call.
	Timeout time.Duration
	// RetryBackoff is the pause before the single retry of a transient
	// embedding failure.
	RetryBackoff time.Duration
	// FallbackEnabled allows a configured fallback store to serve a
	// search when the primary store fails. Off by default: falling
	// back silently changes result completeness, so it is an explicit
	// operator decision.
	FallbackEnabled bool
}

func (c *Config) applyDefaults() {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.OversampleFactor <= 0 {
		c.OversampleFactor = 3
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 60 * time.Second
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 250 * time.Millisecond
	}
}

// Service is the search orchestrator. It owns its query cache; the
// cache's lifetime is tied to the service instance, never shared
// implicitly across services.
type Service struct {
	embedder provider.Embedder
	primary  store.VectorStore
	fallback store.VectorStore
	cache    *QueryCache
	cfg      Config
	logger   *slog.Logger

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewService creates a search service over an embedder and a primary
// store.
func NewService(embedder provider.Embedder, primary store.VectorStore, cfg Config) (*Service, error) {
	if embedder == nil {
		return nil, recallerr.New(recallerr.CodeConfigInvalidValue, "search service requires an embedder")
	}
	if primary == nil {
		return nil, recallerr.New(recallerr.CodeConfigInvalidValue, "search service requires a vector store")
	}
	cfg.applyDefaults()

	cache, err := NewQueryCache(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}

	return &Service{
		embedder:  embedder,
		primary:   primary,
		cache:     cache,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search"),
		nowFunc:   time.Now,
		sleepFunc: sleepCtx,
	}, nil
}

// SetFallback configures the ephemeral store used when the primary
// fails and FallbackEnabled is set.
func (s *Service) SetFallback(fallback store.VectorStore) {
	s.fallback = fallback
}

// SetNowFunc overrides the time source (for testing).
func (s *Service) SetNowFunc(fn func() time.Time) {
	s.nowFunc = fn
	s.cache.SetNowFunc(fn)
}

// SetSleepFunc overrides the retry backoff sleeper (for testing).
func (s *Service) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	s.sleepFunc = fn
}

// Search embeds the query, retrieves candidates, ranks them, applies
// metadata filters, and returns at most opts.Limit results. An empty
// result slice is a successful search with no matches, never an error.
func (s *Service) Search(ctx context.Context, owner, queryText string, opts Options) ([]Result, error) {
	if owner == "" {
		return nil, recallerr.New(recallerr.CodeStoreInvalidInput, "owner must not be empty")
	}
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = s.cfg.DefaultMinSimilarity
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	queryVec, err := s.embedWithRetry(ctx, queryText)
	if err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	fp := fingerprint(owner, queryText, opts)
	if refs, ok := s.cache.Get(fp); ok {
		results, err := s.materialize(ctx, owner, refs)
		if err == nil {
			s.logger.Debug("query cache hit", "owner", owner, "results", len(results))
			return results, nil
		}
		// A failed hit lookup degrades to a miss; the search proceeds.
		s.logger.Warn("cache hit materialization failed, falling through", "owner", owner, "error", err)
	}

	matches, err := s.retrieve(ctx, owner, queryVec, opts)
	if err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	results := Rank(matches, queryText, s.cfg.Weights, opts.MinSimilarity, s.nowFunc())
	results = filterMetadata(results, opts)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	refs := make([]ResultRef, len(results))
	for i, r := range results {
		refs[i] = ResultRef{
			ID:               r.Record.ID,
			Similarity:       r.Similarity,
			KeywordRelevance: r.KeywordRelevance,
			RecencyBoost:     r.RecencyBoost,
			Satisfaction:     r.Satisfaction,
			Score:            r.Score,
		}
	}
	s.cache.Set(fp, refs, s.cfg.CacheTTL)

	return results, nil
}

// Upsert embeds the record summary when no embedding is present,
// fills in the content hash, and writes through to the primary store.
func (s *Service) Upsert(ctx context.Context, rec *store.Record) (string, error) {
	if rec == nil {
		return "", recallerr.New(recallerr.CodeStoreInvalidInput, "record must not be nil")
	}

	if len(rec.Embedding) == 0 {
		vec, err := s.embedWithRetry(ctx, rec.Summary)
		if err != nil {
			return "", err
		}
		rec.Embedding = vec
	}
	if rec.ContentHash == "" {
		sum := sha256.Sum256([]byte(rec.Summary))
		rec.ContentHash = hex.EncodeToString(sum[:])
	}

	return s.primary.Upsert(ctx, rec)
}

// Delete removes a record from the primary store.
func (s *Service) Delete(ctx context.Context, owner, id string) (bool, error) {
	return s.primary.Delete(ctx, owner, id)
}

// Stats reports record counts for an owner from the primary store.
func (s *Service) Stats(ctx context.Context, owner string) (store.Stats, error) {
	return s.primary.Stats(ctx, owner)
}

// CacheStats exposes query cache effectiveness counters.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// ClearCache drops all cached query results.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// Close releases the embedder and store.
func (s *Service) Close() error {
	embErr := s.embedder.Close()
	storeErr := s.primary.Close()
	if embErr != nil {
		return embErr
	}
	return storeErr
}

// embedWithRetry embeds once, and on a transient provider failure
// retries exactly once after a backoff pause. Permanent, input, and
// configuration errors surface immediately.
func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if !recallerr.IsTransient(err) {
		return nil, err
	}

	s.logger.Warn("transient embedding failure, retrying once", "error", err)
	if sleepErr := s.sleepFunc(ctx, s.cfg.RetryBackoff); sleepErr != nil {
		return nil, recallerr.Wrap(sleepErr, recallerr.CodeSearchTimeout, "search budget expired during retry backoff")
	}

	vec, retryErr := s.embedder.Embed(ctx, text)
	if retryErr != nil {
		return nil, recallerr.Wrap(retryErr, recallerr.CodeSearchFailure, "embedding failed after retry")
	}
	return vec, nil
}

// retrieve queries the primary store, optionally falling back to the
// configured secondary on failure. Fallback is never automatic: it
// requires both FallbackEnabled and a configured fallback store.
func (s *Service) retrieve(ctx context.Context, owner string, queryVec []float32, opts Options) ([]store.Match, error) {
	storeOpts := store.SearchOpts{
		K:             opts.Limit * s.cfg.OversampleFactor,
		MinSimilarity: opts.MinSimilarity,
		Tags:          opts.Tags,
	}

	matches, err := s.primary.Search(ctx, owner, queryVec, storeOpts)
	if err == nil {
		return matches, nil
	}
	if !s.cfg.FallbackEnabled || s.fallback == nil {
		return nil, err
	}

	s.logger.Warn("primary store failed, serving from fallback", "owner", owner, "error", err)
	return s.fallback.Search(ctx, owner, queryVec, storeOpts)
}

// materialize re-reads current record content for cached result refs.
// Records deleted since the entry was cached are skipped.
func (s *Service) materialize(ctx context.Context, owner string, refs []ResultRef) ([]Result, error) {
	if len(refs) == 0 {
		return []Result{}, nil
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	recs, err := s.primary.Get(ctx, owner, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*store.Record, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}

	results := make([]Result, 0, len(refs))
	for _, ref := range refs {
		rec, ok := byID[ref.ID]
		if !ok {
			continue
		}
		results = append(results, Result{
			Record:           rec,
			Similarity:       ref.Similarity,
			KeywordRelevance: ref.KeywordRelevance,
			RecencyBoost:     ref.RecencyBoost,
			Satisfaction:     ref.Satisfaction,
			Score:            ref.Score,
		})
	}
	return results, nil
}

// timeoutOr converts a failure caused by the search deadline into a
// timeout error; anything else passes through unchanged.
func (s *Service) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return recallerr.Wrap(err, recallerr.CodeSearchTimeout, "search timed out")
	}
	return err
}

func filterMetadata(results []Result, opts Options) []Result {
	filtered := results[:0]
	for _, r := range results {
		if opts.Outcome != "" && r.Record.Outcome != opts.Outcome {
			continue
		}
		if !opts.Since.IsZero() && r.Record.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && r.Record.CreatedAt.After(opts.Until) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
