// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package store

import "context"

// VectorStore persists embedding records and answers nearest-neighbor
// queries. Reads (Search, Get, Stats) are safe under concurrent callers;
// writes for the same (owner, external id) are mutually exclusive.
type VectorStore interface {
	// Upsert inserts or replaces a record keyed by (Owner, ExternalID)
	// and returns the record's store-assigned ID. Re-submission with an
	// unchanged ContentHash is a no-op: no duplicate, tags untouched.
	Upsert(ctx context.Context, rec *Record) (string, error)

	// Search returns at most opts.K matches for owner meeting
	// opts.MinSimilarity, in descending raw similarity order.
	Search(ctx context.Context, owner string, query []float32, opts SearchOpts) ([]Match, error)

	// Get fetches records by ID for an owner. Unknown IDs are skipped,
	// not errors; the result preserves the order of ids.
	Get(ctx context.Context, owner string, ids []string) ([]*Record, error)

	// Delete removes a record by owner and ID, reporting whether a
	// record existed.
	Delete(ctx context.Context, owner, id string) (bool, error)

	// Stats reports the owner's record count and capacity utilization.
	Stats(ctx context.Context, owner string) (Stats, error)

	// Dimensions is the fixed embedding dimension this store accepts.
	Dimensions() int

	Close() error
}
