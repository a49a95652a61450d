// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/recall-dev/recall/pkg/vec"
)

func init() {
	RegisterBackend("memory", func(cfg *StorageConfig) (VectorStore, error) {
		return NewMemoryStore(cfg.VectorDimensions, cfg.MaxRecordsPerOwner), nil
	})
}

// Compile-time interface check.
var _ VectorStore = (*MemoryStore)(nil)

// MemoryStore is the ephemeral backend: a linear-scan cosine search over
// per-owner maps. O(N) per query, intended for tests and low-volume
// deployments; nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	dims       int
	maxRecords int
	owners     map[string]*ownerShard
	nowFunc    func() time.Time // for testing
}

type ownerShard struct {
	byExt map[string]*Record
	byID  map[string]*Record
}

// NewMemoryStore creates an empty ephemeral store with a fixed embedding
// dimension. maxRecords caps utilization reporting only; 0 means unbounded.
func NewMemoryStore(dims, maxRecords int) *MemoryStore {
	return &MemoryStore{
		dims:       dims,
		maxRecords: maxRecords,
		owners:     map[string]*ownerShard{},
		nowFunc:    time.Now,
	}
}

func (m *MemoryStore) Dimensions() int { return m.dims }

// SetNowFunc overrides the time source (for testing).
func (m *MemoryStore) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.mu.Unlock()
}

func (m *MemoryStore) Upsert(ctx context.Context, rec *Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "upsert cancelled")
	}
	if err := ValidateRecord(rec, m.dims); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	shard, ok := m.owners[rec.Owner]
	if !ok {
		shard = &ownerShard{byExt: map[string]*Record{}, byID: map[string]*Record{}}
		m.owners[rec.Owner] = shard
	}

	now := m.nowFunc()

	if existing, ok := shard.byExt[rec.ExternalID]; ok {
		// Unchanged content: no duplicate, tags untouched.
		if existing.ContentHash == rec.ContentHash {
			return existing.ID, nil
		}
		stored := cloneRecord(rec)
		stored.ID = existing.ID
		stored.UpdatedAt = now
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = existing.CreatedAt
		}
		shard.byExt[rec.ExternalID] = stored
		shard.byID[stored.ID] = stored
		return stored.ID, nil
	}

	stored := cloneRecord(rec)
	stored.ID = uuid.NewString()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	shard.byExt[rec.ExternalID] = stored
	shard.byID[stored.ID] = stored
	return stored.ID, nil
}

func (m *MemoryStore) Search(ctx context.Context, owner string, query []float32, opts SearchOpts) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "search cancelled")
	}
	if err := vec.CheckDimensions(query, m.dims); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	shard, ok := m.owners[owner]
	if !ok {
		return nil, nil
	}

	matches := make([]Match, 0, len(shard.byExt))
	for _, rec := range shard.byExt {
		if !hasAllTags(rec.Tags, opts.Tags) {
			continue
		}
		sim, err := vec.Cosine(query, rec.Embedding)
		if err != nil {
			return nil, err
		}
		// Threshold is inclusive.
		if sim < opts.MinSimilarity {
			continue
		}
		matches = append(matches, Match{Record: cloneRecord(rec), Similarity: sim})
	}

	sortMatches(matches)
	if opts.K > 0 && len(matches) > opts.K {
		matches = matches[:opts.K]
	}
	return matches, nil
}

func (m *MemoryStore) Get(ctx context.Context, owner string, ids []string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "get cancelled")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	shard, ok := m.owners[owner]
	if !ok {
		return nil, nil
	}

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := shard.byID[id]; ok {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, owner, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "delete cancelled")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	shard, ok := m.owners[owner]
	if !ok {
		return false, nil
	}

	rec, ok := shard.byID[id]
	if !ok {
		return false, nil
	}

	delete(shard.byID, id)
	delete(shard.byExt, rec.ExternalID)
	return true, nil
}

func (m *MemoryStore) Stats(ctx context.Context, owner string) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "stats cancelled")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	if shard, ok := m.owners[owner]; ok {
		count = int64(len(shard.byExt))
	}

	stats := Stats{Count: count}
	if m.maxRecords > 0 {
		stats.UtilizationPercent = float64(count) / float64(m.maxRecords) * 100
	}
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }

// sortMatches orders by similarity descending, then recency descending,
// then ID ascending, so repeated searches over identical data are stable.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if !matches[i].Record.CreatedAt.Equal(matches[j].Record.CreatedAt) {
			return matches[i].Record.CreatedAt.After(matches[j].Record.CreatedAt)
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})
}

// hasAllTags reports whether rec carries every requested tag (AND semantics).
func hasAllTags(recTags, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(recTags))
	for _, t := range recTags {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func cloneRecord(rec *Record) *Record {
	out := *rec
	out.Embedding = append([]float32(nil), rec.Embedding...)
	out.Tags = append([]string(nil), rec.Tags...)
	if rec.Satisfaction != nil {
		s := *rec.Satisfaction
		out.Satisfaction = &s
	}
	return &out
}
