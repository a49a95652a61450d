// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

// Package local implements the embedding provider backed by a local
// OpenAI-compatible endpoint (Ollama, llama.cpp, LM Studio). No API key
// is required.
package local

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/recall-dev/recall/internal/provider"
	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/recall-dev/recall/pkg/vec"
)

func init() {
	provider.Register("local", func(cfg provider.Config) (provider.Embedder, error) {
		return New(cfg)
	})
}

// Embedder implements provider.Embedder against a local
// OpenAI-compatible embedding endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	dims     int
	health   *provider.HealthTracker
}

var _ provider.Embedder = (*Embedder)(nil)

// New creates a local embedder. The endpoint and dimensions are
// required; local models expose no discovery API for either.
func New(cfg provider.Config) (*Embedder, error) {
	if cfg.Endpoint == "" {
		return nil, recallerr.New(recallerr.CodeConfigInvalidValue,
			"local: endpoint is required", recallerr.FieldProvider("local"))
	}
	if cfg.Model == "" {
		return nil, recallerr.New(recallerr.CodeConfigInvalidValue,
			"local: model is required", recallerr.FieldProvider("local"))
	}
	if cfg.Dimensions <= 0 {
		return nil, recallerr.New(recallerr.CodeConfigInvalidValue,
			"local: dimensions must be positive", recallerr.FieldProvider("local"))
	}

	// "none" satisfies clients behind servers that skip auth entirely.
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}

	client, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.Endpoint),
		lcopenai.WithToken(token),
		lcopenai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeConfigInvalidValue, "local: creating client")
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeConfigInvalidValue, "local: creating embedder")
	}

	health, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		model:    cfg.Model,
		dims:     cfg.Dimensions,
		health:   health,
	}, nil
}

func (e *Embedder) Name() string    { return "local" }
func (e *Embedder) Model() string   { return e.model }
func (e *Embedder) Dimensions() int { return e.dims }
func (e *Embedder) Close() error    { return nil }

// Health exposes the provider's health tracker.
func (e *Embedder) Health() *provider.HealthTracker { return e.health }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, text := range texts {
		p, err := provider.PrepareInput(text)
		if err != nil {
			return nil, recallerr.With(err, recallerr.Field("batch_index", i))
		}
		prepared[i] = p
	}

	// Local endpoints surface everything as transport errors; there is
	// no HTTP status taxonomy worth parsing out of langchaingo.
	out, err := e.embedder.EmbedDocuments(ctx, prepared)
	if err != nil {
		e.health.RecordFailure()
		return nil, provider.WrapTransportError(err, "local", e.model)
	}
	e.health.RecordSuccess()

	if len(out) != len(prepared) {
		return nil, recallerr.Errorf(recallerr.CodeProviderUpstream,
			"local: expected %d embeddings, got %d", len(prepared), len(out))
	}
	for i, v := range out {
		if err := vec.CheckDimensions(v, e.dims); err != nil {
			return nil, recallerr.With(err, recallerr.Field("batch_index", i))
		}
	}

	slog.Debug("embedded batch", "provider", "local", "model", e.model, "count", len(out))
	return out, nil
}
