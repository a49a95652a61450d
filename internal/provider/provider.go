// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package provider

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// Embedder converts text into fixed-dimension semantic vectors via an
// external embedding service. Implementations classify failures into
// structured error codes at this boundary; nothing downstream parses
// error message text.
type Embedder interface {
	Name() string
	Model() string
	Dimensions() int

	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order regardless
	// of completion order. The batch is fail-fast: the first failure
	// cancels outstanding work and fails the whole call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Close() error
}

// Config selects and configures an embedding provider. The variant is
// chosen once at construction; call sites never dispatch on strings.
type Config struct {
	Provider   string // "openai", "google", or "local"
	Model      string
	Dimensions int
	APIKey     string
	Endpoint   string // optional override; required for "local"
}

// Factory creates an Embedder for a named provider variant.
type Factory func(cfg Config) (Embedder, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// Register registers a factory for a named provider variant.
// Variant packages call this from init(). Goroutine-safe.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the configured Embedder variant.
func New(cfg Config) (Embedder, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"unsupported embedding provider: %q", cfg.Provider)
	}
	return factory(cfg)
}

// MaxInputBytes is the documented maximum input length. Longer inputs
// are truncated at a rune boundary, and the truncation is logged.
const MaxInputBytes = 8192

// PrepareInput validates and bounds a single embedding input.
func PrepareInput(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", recallerr.New(recallerr.CodeInputEmpty, "embedding input must not be empty")
	}

	if len(text) <= MaxInputBytes {
		return text, nil
	}

	cut := MaxInputBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	slog.Warn("truncating embedding input",
		"original_bytes", len(text),
		"truncated_bytes", cut,
	)
	return text[:cut], nil
}
