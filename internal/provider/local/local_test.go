// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package local

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-dev/recall/internal/provider"
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func TestImplementsInterface(t *testing.T) {
	var _ provider.Embedder = (*Embedder)(nil)
}

func TestRequiresEndpointModelAndDimensions(t *testing.T) {
	_, err := New(provider.Config{Provider: "local", Model: "nomic-embed-text", Dimensions: 768})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeConfigInvalidValue))

	_, err = New(provider.Config{Provider: "local", Endpoint: "http://localhost:11434/v1", Dimensions: 768})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeConfigInvalidValue))

	_, err = New(provider.Config{Provider: "local", Endpoint: "http://localhost:11434/v1", Model: "nomic-embed-text"})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeConfigInvalidValue))
}

func TestEmbedAgainstMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i := range req.Input {
			data[i] = datum{Object: "embedding", Index: i, Embedding: []float64{1, 0, 0, 0}}
		}
		resp := map[string]any{
			"object": "list",
			"data":   data,
			"model":  "nomic-embed-text",
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	e, err := New(provider.Config{
		Provider:   "local",
		Endpoint:   server.URL + "/v1",
		Model:      "nomic-embed-text",
		Dimensions: 4,
	})
	require.NoError(t, err)

	v, err := e.Embed(t.Context(), "does the build cache survive restarts")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, v)
	assert.True(t, e.Health().IsHealthy())
}

func TestUnreachableEndpointIsTransient(t *testing.T) {
	e, err := New(provider.Config{
		Provider:   "local",
		Endpoint:   "http://127.0.0.1:1/v1",
		Model:      "nomic-embed-text",
		Dimensions: 4,
	})
	require.NoError(t, err)

	_, err = e.Embed(t.Context(), "anything")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeProviderNetwork))
	assert.True(t, recallerr.IsTransient(err))
}
