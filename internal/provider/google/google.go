// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

// Package google implements the embedding provider backed by the
// Google Gemini API.
package google

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/genai"

	"github.com/recall-dev/recall/internal/provider"
	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/recall-dev/recall/pkg/vec"
)

func init() {
	provider.Register("google", func(cfg provider.Config) (provider.Embedder, error) {
		return New(cfg)
	})
}

// knownModels maps supported embedding models to their default output
// dimensions.
var knownModels = map[string]struct {
	defaultDims    int
	dimsAdjustable bool
}{
	"gemini-embedding-001": {3072, true},
	"text-embedding-004":   {768, false},
}

// Embedder implements provider.Embedder using the Google Gemini API.
type Embedder struct {
	client *genai.Client
	model  string
	dims   int
	health *provider.HealthTracker
}

var _ provider.Embedder = (*Embedder)(nil)

// New creates a Google embedder. Returns an error if the API key is
// missing or the model is not a known embedding model.
func New(cfg provider.Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, recallerr.New(recallerr.CodeConfigMissingCredential,
			"google: missing api key", recallerr.FieldProvider("google"))
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	info, ok := knownModels[model]
	if !ok {
		return nil, recallerr.Errorf(recallerr.CodeConfigUnsupportedModel,
			"google: unsupported embedding model %q", model)
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = info.defaultDims
	}
	if dims != info.defaultDims && !info.dimsAdjustable {
		return nil, recallerr.Errorf(recallerr.CodeConfigInvalidValue,
			"google: model %q does not support custom dimensions", model)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, recallerr.Wrapf(err, recallerr.CodeProviderUpstream, "google: creating client")
	}

	health, err := provider.NewHealthTracker(provider.DefaultHealthCooldown)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: client,
		model:  model,
		dims:   dims,
		health: health,
	}, nil
}

func (e *Embedder) Name() string    { return "google" }
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

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		p, err := provider.PrepareInput(text)
		if err != nil {
			return nil, recallerr.With(err, recallerr.Field("batch_index", i))
		}
		contents[i] = genai.NewContentFromText(p, genai.RoleUser)
	}

	dims := int32(e.dims)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		e.health.RecordFailure()
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, provider.WrapHTTPError(err, apiErr.Code, "google", e.model)
		}
		return nil, provider.WrapTransportError(err, "google", e.model)
	}
	e.health.RecordSuccess()

	if len(resp.Embeddings) != len(texts) {
		return nil, recallerr.Errorf(recallerr.CodeProviderUpstream,
			"google: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, recallerr.Errorf(recallerr.CodeProviderUpstream,
				"google: missing embedding at index %d", i)
		}
		v := make([]float32, len(emb.Values))
		copy(v, emb.Values)
		if err := vec.CheckDimensions(v, e.dims); err != nil {
			return nil, err
		}
		out[i] = v
	}

	slog.Debug("embedded batch", "provider", "google", "model", e.model, "count", len(out))
	return out, nil
}
