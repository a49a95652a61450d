// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/provider"
	"github.com/recall-dev/recall/internal/search"
	"github.com/recall-dev/recall/internal/secrets"
	"github.com/recall-dev/recall/internal/store"
	recallerr "github.com/recall-dev/recall/pkg/errors"

	// Registered backends and providers.
	_ "github.com/recall-dev/recall/internal/provider/google"
	_ "github.com/recall-dev/recall/internal/provider/local"
	_ "github.com/recall-dev/recall/internal/provider/openai"
	_ "github.com/recall-dev/recall/internal/store/sqlite"
)

// NewRootCmd creates the root recall command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recall",
		Short:         "recall — semantic search over conversation history",
		Long:          "Recall indexes conversation summaries as embeddings and answers hybrid semantic searches over them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newSearchCmd(),
		newUpsertCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newSecretCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig resolves the config path (flag, then the default location
// when it exists, otherwise built-in defaults) and loads it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			}
		}
	}

	config.WarnInsecurePermissions(path)
	return config.Load(path)
}

// buildStore opens the configured vector store backend.
func buildStore(cfg *config.Config) (store.VectorStore, error) {
	path := cfg.Storage.Path
	if path == "" && cfg.Storage.Backend == "sqlite" {
		dataDir, err := config.DefaultDataDir()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, recallerr.Wrapf(err, recallerr.CodeStoreDatabaseFailure, "creating data directory %s", dataDir)
		}
		path = dataDir
	}

	return store.New(&store.StorageConfig{
		Backend:            cfg.Storage.Backend,
		Path:               path,
		VectorDimensions:   cfg.Storage.VectorDimensions,
		MaxRecordsPerOwner: cfg.Storage.MaxRecordsPerOwner,
	})
}

// buildEmbedder constructs the configured provider variant, wrapped with
// the concurrency limiter and the embedding cache. API keys given as
// keyring:// URIs are resolved through the OS keyring.
func buildEmbedder(cfg *config.Config) (provider.Embedder, error) {
	apiKey, err := secrets.ResolveKeyringURI(secrets.NewKeyringStore(), cfg.Embedding.APIKey)
	if err != nil {
		return nil, err
	}

	base, err := provider.New(provider.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		APIKey:     apiKey,
		Endpoint:   cfg.Embedding.Endpoint,
	})
	if err != nil {
		return nil, err
	}

	limited, err := provider.NewLimitedEmbedder(base, cfg.Embedding.MaxConcurrent)
	if err != nil {
		return nil, err
	}

	return provider.NewCachingEmbedder(limited, cfg.Embedding.CacheSize)
}

// buildService wires the embedder, store, and search service from
// configuration. The caller must Close the returned service.
func buildService(cmd *cobra.Command) (*search.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc, err := search.NewService(embedder, st, search.Config{
		Weights: search.Weights{
			Vector:       cfg.Search.Weights.Vector,
			Keyword:      cfg.Search.Weights.Keyword,
			Recency:      cfg.Search.Weights.Recency,
			Satisfaction: cfg.Search.Weights.Satisfaction,
		},
		DefaultMinSimilarity: cfg.Search.MinSimilarity,
		OversampleFactor:     cfg.Search.OversampleFactor,
		CacheTTL:             cfg.Search.CacheTTL,
		CacheCapacity:        cfg.Search.CacheCapacity,
		Timeout:              cfg.Search.Timeout,
		FallbackEnabled:      cfg.Search.FallbackToMemory,
	})
	if err != nil {
		_ = st.Close()
		_ = embedder.Close()
		return nil, err
	}

	if cfg.Search.FallbackToMemory {
		fallback, err := store.New(&store.StorageConfig{
			Backend:            "memory",
			VectorDimensions:   cfg.Storage.VectorDimensions,
			MaxRecordsPerOwner: cfg.Storage.MaxRecordsPerOwner,
		})
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
		svc.SetFallback(fallback)
	}

	return svc, nil
}
