// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

// Package openai implements the embedding provider backed by the
// OpenAI embeddings API.
package openai

import (
	"context"
	"errors"
	"log/slog"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/recall-dev/recall/internal/provider"
	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/recall-dev/recall/pkg/vec"
)

func init() {
	provider.Register("openai", func(cfg provider.Config) (provider.Embedder, error) {
		return New(cfg)
	})
}

// knownModels maps supported embedding models to their default output
// dimensions. text-embedding-3-* models accept a reduced dimension
// parameter; ada-002 does not.
var knownModels = map[string]struct {
	defaultDims    int
	dimsAdjustable bool
}{
	"text-embedding-3-small": {1536, true},
	"text-embedding-3-large": {3072, true},
	"text-embedding-ada-002": {1536, false},
}

// Embedder implements provider.Embedder using the OpenAI embeddings API.
type Embedder struct {
	client openaisdk.Client
	model  string
	dims   int
	health *provider.HealthTracker
}

var _ provider.Embedder = (*Embedder)(nil)

// New creates an OpenAI embedder. Returns an error if the API key is
// missing or the model is not a known embedding model.
func New(cfg provider.Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, recallerr.New(recallerr.CodeConfigMissingCredential,
			"openai: missing api key", recallerr.FieldProvider("openai"))
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	info, ok := knownModels[model]
	if !ok {
		return nil, recallerr.Errorf(recallerr.CodeConfigUnsupportedModel,
			"openai: unsupported embedding model %q", model)
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = info.defaultDims
	}
	if dims != info.defaultDims && !info.dimsAdjustable {
		return nil, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"openai: model %q does not support custom dimensions", model)
	}

	// Retry policy lives in the search service, not the SDK.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	health, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: openaisdk.NewClient(opts...),
		model:  model,
		dims:   dims,
		health: health,
	}, nil
}

func (e *Embedder) Name() string    { return "openai" }
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

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: prepared},
		Model: openaisdk.EmbeddingModel(e.model),
	}
	if knownModels[e.model].dimsAdjustable {
		params.Dimensions = openaisdk.Int(int64(e.dims))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		e.health.RecordFailure()
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return nil, provider.WrapHTTPError(err, apiErr.StatusCode, "openai", e.model)
		}
		return nil, provider.WrapTransportError(err, "openai", e.model)
	}
	e.health.RecordSuccess()

	if len(resp.Data) != len(prepared) {
		return nil, recallerr.Errorf(recallerr.CodeProviderUpstream,
			"openai: expected %d embeddings, got %d", len(prepared), len(resp.Data))
	}

	// The API documents Data order as matching input order, but Index is
	// authoritative.
	out := make([][]float32, len(prepared))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) {
			return nil, recallerr.Errorf(recallerr.CodeProviderUpstream,
				"openai: embedding index %d out of range", idx)
		}
		v := make([]float32, len(item.Embedding))
		for j, f := range item.Embedding {
			v[j] = float32(f)
		}
		if err := vec.CheckDimensions(v, e.dims); err != nil {
			return nil, err
		}
		out[idx] = v
	}

	slog.Debug("embedded batch", "provider", "openai", "model", e.model, "count", len(out))
	return out, nil
}
