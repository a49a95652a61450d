// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// Config is the top-level Recall configuration.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Search    SearchConfig    `mapstructure:"search"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	// Dimensions is the vector width. Zero means the model default.
	Dimensions int `mapstructure:"dimensions"`
	// Endpoint overrides the provider base URL; required for "local".
	Endpoint string `mapstructure:"endpoint"`
	// APIKey may be a literal credential or a keyring:// URI resolved
	// through the OS keychain at startup.
	APIKey string `mapstructure:"api_key"`
	// MaxConcurrent caps in-flight embedding calls.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// CacheSize bounds the embedding LRU (entries).
	CacheSize int `mapstructure:"cache_size"`
}

// StorageConfig selects the vector store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the data directory for the sqlite backend.
	Path string `mapstructure:"path"`
	// VectorDimensions must match the embedding provider's output.
	VectorDimensions int `mapstructure:"vector_dimensions"`
	// MaxRecordsPerOwner bounds per-owner utilization reporting.
	MaxRecordsPerOwner int `mapstructure:"max_records_per_owner"`
}

// SearchConfig tunes the search orchestrator.
type SearchConfig struct {
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity    int           `mapstructure:"cache_capacity"`
	Weights          WeightsConfig `mapstructure:"weights"`
	MinSimilarity    float64       `mapstructure:"min_similarity"`
	OversampleFactor int           `mapstructure:"oversample_factor"`
	Timeout          time.Duration `mapstructure:"timeout"`
	// FallbackToMemory serves searches from an ephemeral in-memory
	// store when the durable store fails. Off by default: the fallback
	// silently changes result completeness.
	FallbackToMemory bool `mapstructure:"fallback_to_memory"`
}

// WeightsConfig sets the hybrid ranking signal weights.
type WeightsConfig struct {
	Vector       float64 `mapstructure:"vector"`
	Keyword      float64 `mapstructure:"keyword"`
	Recency      float64 `mapstructure:"recency"`
	Satisfaction float64 `mapstructure:"satisfaction"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix RECALL_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.max_concurrent", 4)
	v.SetDefault("embedding.cache_size", 1024)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.vector_dimensions", 1536)
	v.SetDefault("storage.max_records_per_owner", 10000)
	v.SetDefault("search.cache_ttl", "60s")
	v.SetDefault("search.cache_capacity", 256)
	v.SetDefault("search.weights.vector", 0.60)
	v.SetDefault("search.weights.keyword", 0.30)
	v.SetDefault("search.weights.recency", 0.07)
	v.SetDefault("search.weights.satisfaction", 0.03)
	v.SetDefault("search.min_similarity", 0.0)
	v.SetDefault("search.oversample_factor", 3)
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.fallback_to_memory", false)

	// Environment
	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, recallerr.Wrapf(err, recallerr.CodeConfigLoadFailure, "reading config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeConfigLoadFailure, "unmarshalling config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, recallerr.Wrapf(errors.Join(errs...), recallerr.CodeConfigInvalidValue, "validating config")
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found, collecting every issue rather than stopping
// at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSearch()...)

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	validProviders := map[string]bool{"openai": true, "google": true, "local": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: embedding.provider must be one of [openai, google, local], got %q",
			c.Embedding.Provider,
		))
	}

	if c.Embedding.Provider == "local" && c.Embedding.Endpoint == "" {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: embedding.endpoint is required for the local provider"))
	}

	if c.Embedding.Dimensions < 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: embedding.dimensions must not be negative, got %d",
			c.Embedding.Dimensions,
		))
	}

	if c.Embedding.MaxConcurrent <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: embedding.max_concurrent must be greater than 0, got %d",
			c.Embedding.MaxConcurrent,
		))
	}

	if c.Embedding.CacheSize <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: embedding.cache_size must be greater than 0, got %d",
			c.Embedding.CacheSize,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.VectorDimensions <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: storage.vector_dimensions must be greater than 0, got %d",
			c.Storage.VectorDimensions,
		))
	}

	if c.Embedding.Dimensions > 0 && c.Embedding.Dimensions != c.Storage.VectorDimensions {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigDimensionMismatch,
			"config: embedding.dimensions (%d) must match storage.vector_dimensions (%d)",
			c.Embedding.Dimensions, c.Storage.VectorDimensions,
		))
	}

	if c.Storage.MaxRecordsPerOwner <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: storage.max_records_per_owner must be greater than 0, got %d",
			c.Storage.MaxRecordsPerOwner,
		))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.CacheTTL <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: search.cache_ttl must be greater than 0, got %s",
			c.Search.CacheTTL,
		))
	}

	if c.Search.CacheCapacity <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: search.cache_capacity must be greater than 0, got %d",
			c.Search.CacheCapacity,
		))
	}

	for name, w := range map[string]float64{
		"vector":       c.Search.Weights.Vector,
		"keyword":      c.Search.Weights.Keyword,
		"recency":      c.Search.Weights.Recency,
		"satisfaction": c.Search.Weights.Satisfaction,
	} {
		if w < 0 {
			errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
				"config: search.weights.%s must not be negative, got %g", name, w,
			))
		}
	}

	if c.Search.MinSimilarity < -1 || c.Search.MinSimilarity > 1 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: search.min_similarity must be in [-1, 1], got %g",
			c.Search.MinSimilarity,
		))
	}

	if c.Search.OversampleFactor <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: search.oversample_factor must be greater than 0, got %d",
			c.Search.OversampleFactor,
		))
	}

	if c.Search.Timeout <= 0 {
		errs = append(errs, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"config: search.timeout must be greater than 0, got %s",
			c.Search.Timeout,
		))
	}

	return errs
}
