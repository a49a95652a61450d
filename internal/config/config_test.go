// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 4, cfg.Embedding.MaxConcurrent)
	assert.Equal(t, 1024, cfg.Embedding.CacheSize)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 1536, cfg.Storage.VectorDimensions)
	assert.Equal(t, 60*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, 256, cfg.Search.CacheCapacity)
	assert.Equal(t, 0.60, cfg.Search.Weights.Vector)
	assert.Equal(t, 0.30, cfg.Search.Weights.Keyword)
	assert.Equal(t, 3, cfg.Search.OversampleFactor)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.False(t, cfg.Search.FallbackToMemory)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: local
  model: nomic-embed-text
  endpoint: http://localhost:11434/v1
  dimensions: 768
storage:
  backend: memory
  vector_dimensions: 768
search:
  cache_ttl: 30s
  min_similarity: 0.5
  fallback_to_memory: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 30*time.Second, cfg.Search.CacheTTL)
	assert.Equal(t, 0.5, cfg.Search.MinSimilarity)
	assert.True(t, cfg.Search.FallbackToMemory)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RECALL_EMBEDDING_PROVIDER", "google")
	t.Setenv("RECALL_SEARCH_CACHE_CAPACITY", "32")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.Embedding.Provider)
	assert.Equal(t, 32, cfg.Search.CacheCapacity)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{Provider: "bogus", MaxConcurrent: 0, CacheSize: -1},
		Storage:   StorageConfig{Backend: "bogus", VectorDimensions: 0, MaxRecordsPerOwner: 0},
		Search: SearchConfig{
			CacheTTL:         0,
			CacheCapacity:    0,
			MinSimilarity:    2,
			OversampleFactor: 0,
			Timeout:          0,
		},
	}

	errs := cfg.Validate()
	assert.GreaterOrEqual(t, len(errs), 9, "every invalid field reports its own error")
}

func TestValidateLocalProviderNeedsEndpoint(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: local
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestValidateDimensionMismatch(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: openai
  dimensions: 768
storage:
  vector_dimensions: 1536
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector_dimensions")
}

func TestValidateWeightsMustNotBeNegative(t *testing.T) {
	path := writeConfig(t, `
search:
  weights:
    keyword: -0.3
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights.keyword")
}
