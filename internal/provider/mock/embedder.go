// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

// Package mock provides a deterministic in-process Embedder for tests.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/recall-dev/recall/internal/provider"
	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/recall-dev/recall/pkg/vec"
)

// Embedder produces deterministic unit vectors derived from the input
// text, counts calls, and can be configured to fail a number of times
// before succeeding.
type Embedder struct {
	dims int

	calls      atomic.Int64
	batchCalls atomic.Int64

	mu        sync.Mutex
	failures  int
	failErr   error
	embedFunc func(text string) ([]float32, error)
}

var _ provider.Embedder = (*Embedder)(nil)

func New(dims int) *Embedder {
	return &Embedder{dims: dims}
}

func (m *Embedder) Name() string    { return "mock" }
func (m *Embedder) Model() string   { return "mock-embed-001" }
func (m *Embedder) Dimensions() int { return m.dims }
func (m *Embedder) Close() error    { return nil }

// Calls returns the number of single-embed calls observed.
func (m *Embedder) Calls() int64 { return m.calls.Load() }

// BatchCalls returns the number of batch calls observed.
func (m *Embedder) BatchCalls() int64 { return m.batchCalls.Load() }

// FailTimes makes the next n Embed calls return err.
func (m *Embedder) FailTimes(n int, err error) {
	m.mu.Lock()
	m.failures = n
	m.failErr = err
	m.mu.Unlock()
}

// SetEmbedFunc overrides vector generation entirely.
func (m *Embedder) SetEmbedFunc(fn func(text string) ([]float32, error)) {
	m.mu.Lock()
	m.embedFunc = fn
	m.mu.Unlock()
}

func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, provider.WrapContextError(err)
	}

	m.mu.Lock()
	if m.failures > 0 {
		m.failures--
		err := m.failErr
		m.mu.Unlock()
		if err == nil {
			err = recallerr.New(recallerr.CodeProviderUpstream, "mock embed failure")
		}
		return nil, err
	}
	fn := m.embedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(text)
	}
	return m.deterministicVector(text), nil
}

func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// deterministicVector hashes the text into a reproducible unit vector so
// identical inputs always embed identically and distinct inputs almost
// never collide.
func (m *Embedder) deterministicVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, m.dims)
	for i := range v {
		chunk := sum[(i*4)%len(sum) : (i*4)%len(sum)+4]
		bits := binary.LittleEndian.Uint32(chunk)
		v[i] = float32(bits%1000)/1000.0 + 0.001
		if i%2 == 1 {
			v[i] = -v[i]
		}
		// Perturb so rotations of the hash do not repeat exactly.
		v[i] += float32(i) * 0.0001
	}
	return vec.Normalize(v)
}
