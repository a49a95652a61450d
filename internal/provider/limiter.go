// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package provider

import (
	"context"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// LimitedEmbedder caps the number of in-flight embedding requests
// against the upstream service using a shared worker pool. Batches
// fan out across the pool and fail fast: the first error cancels the
// remaining work.
type LimitedEmbedder struct {
	inner Embedder
	pool  *ants.Pool
}

var _ Embedder = (*LimitedEmbedder)(nil)

// NewLimitedEmbedder wraps inner with a pool of at most concurrency
// simultaneous upstream calls.
func NewLimitedEmbedder(inner Embedder, concurrency int) (*LimitedEmbedder, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, recallerr.Wrap(err, recallerr.CodeConfigInvalidValue, "creating embedding worker pool")
	}
	return &LimitedEmbedder{inner: inner, pool: pool}, nil
}

func (l *LimitedEmbedder) Name() string    { return l.inner.Name() }
func (l *LimitedEmbedder) Model() string   { return l.inner.Model() }
func (l *LimitedEmbedder) Dimensions() int { return l.inner.Dimensions() }

func (l *LimitedEmbedder) Close() error {
	l.pool.Release()
	return l.inner.Close()
}

func (l *LimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var (
		vec []float32
		err error
	)
	done := make(chan struct{})
	submitErr := l.pool.Submit(func() {
		defer close(done)
		vec, err = l.inner.Embed(ctx, text)
	})
	if submitErr != nil {
		return nil, recallerr.Wrap(submitErr, recallerr.CodeProviderNetwork, "submitting embedding request")
	}
	select {
	case <-done:
		return vec, err
	case <-ctx.Done():
		return nil, WrapContextError(ctx.Err())
	}
}

// EmbedBatch embeds each text as its own pooled request, preserving
// input order in the result slice.
func (l *LimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		g.Go(func() error {
			var (
				vec []float32
				err error
			)
			done := make(chan struct{})
			if submitErr := l.pool.Submit(func() {
				defer close(done)
				vec, err = l.inner.Embed(gctx, text)
			}); submitErr != nil {
				return recallerr.Wrap(submitErr, recallerr.CodeProviderNetwork, "submitting embedding request")
			}
			select {
			case <-done:
			case <-gctx.Done():
				return WrapContextError(gctx.Err())
			}
			if err != nil {
				return recallerr.With(err, recallerr.Field("batch_index", i))
			}
			results[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
