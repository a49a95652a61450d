// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package sqlite

import (
	"path/filepath"

	"github.com/recall-dev/recall/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", func(cfg *store.StorageConfig) (store.VectorStore, error) {
		return NewVectorStore(filepath.Join(cfg.Path, "vectors.db"), cfg.VectorDimensions, cfg.MaxRecordsPerOwner)
	})
}
