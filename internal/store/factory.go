// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package store

import (
	"sync"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// Factory creates a VectorStore for a named backend.
type Factory func(cfg *StorageConfig) (VectorStore, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// New creates a VectorStore from config via the registered backends.
func New(cfg *StorageConfig) (VectorStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, recallerr.Errorf(recallerr.CodeStoreBackendUnsupported,
			"unsupported storage backend: %q", backend)
	}

	if cfg.VectorDimensions <= 0 {
		cloned := *cfg
		cloned.VectorDimensions = defaultVectorDimensions
		return factory(&cloned)
	}

	return factory(cfg)
}
