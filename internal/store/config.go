// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package store

// defaultVectorDimensions matches OpenAI text-embedding-3-small.
const defaultVectorDimensions = 1536

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend            string // "sqlite" (durable) or "memory" (ephemeral)
	Path               string // data directory for durable backends
	VectorDimensions   int    // embedding dimensions; 0 uses the default (1536)
	MaxRecordsPerOwner int    // capacity for utilization reporting; 0 = unbounded
}
