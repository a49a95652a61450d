// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package provider_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-dev/recall/internal/provider"
	"github.com/recall-dev/recall/internal/provider/mock"
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func TestPrepareInputRejectsEmpty(t *testing.T) {
	_, err := provider.PrepareInput("   \n\t ")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeInputEmpty))
}

func TestPrepareInputPassesThroughShortText(t *testing.T) {
	got, err := provider.PrepareInput("how do I rotate TLS certs")
	require.NoError(t, err)
	assert.Equal(t, "how do I rotate TLS certs", got)
}

func TestPrepareInputTruncatesAtRuneBoundary(t *testing.T) {
	// Fill right up to the limit, then place a multi-byte rune across it.
	long := strings.Repeat("a", provider.MaxInputBytes-1) + "é" + strings.Repeat("b", 100)
	got, err := provider.PrepareInput(long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), provider.MaxInputBytes)
	// The é (2 bytes) straddles the cut, so it must be dropped whole.
	assert.Equal(t, strings.Repeat("a", provider.MaxInputBytes-1), got)
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   recallerr.Code
	}{
		{401, recallerr.CodeProviderAuth},
		{403, recallerr.CodeProviderAuth},
		{429, recallerr.CodeProviderRateLimited},
		{500, recallerr.CodeProviderUpstream},
		{503, recallerr.CodeProviderUpstream},
		{400, recallerr.CodeProviderBadRequest},
		{404, recallerr.CodeProviderBadRequest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, provider.ClassifyHTTPStatus(tc.status), "status %d", tc.status)
	}
}

func TestClassificationRetryability(t *testing.T) {
	transient := provider.WrapHTTPError(assert.AnError, 429, "openai", "text-embedding-3-small")
	assert.True(t, recallerr.IsTransient(transient))
	assert.False(t, recallerr.IsPermanent(transient))

	permanent := provider.WrapHTTPError(assert.AnError, 401, "openai", "text-embedding-3-small")
	assert.True(t, recallerr.IsPermanent(permanent))
	assert.False(t, recallerr.IsTransient(permanent))

	network := provider.WrapTransportError(assert.AnError, "local", "nomic-embed-text")
	assert.True(t, recallerr.IsTransient(network))
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := provider.New(provider.Config{Provider: "does-not-exist"})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeConfigInvalidValue))
}

func TestCachingEmbedderHitsAndMisses(t *testing.T) {
	inner := mock.New(8)
	cached, err := provider.NewCachingEmbedder(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := cached.Embed(ctx, "deploy failed on staging")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "deploy failed on staging")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.Calls(), "second call must be served from cache")

	hits, misses := cached.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachingEmbedderKeyedByContent(t *testing.T) {
	inner := mock.New(8)
	cached, err := provider.NewCachingEmbedder(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "first text")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "second text")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.Calls())
}

func TestCachingEmbedderBatchReassembly(t *testing.T) {
	inner := mock.New(8)
	cached, err := provider.NewCachingEmbedder(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	// Warm the cache with the middle entry only.
	warm, err := cached.Embed(ctx, "beta")
	require.NoError(t, err)

	texts := []string{"alpha", "beta", "gamma"}
	vecs, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, warm, vecs[1], "cached entry must land at its original index")
	for i, v := range vecs {
		want, err := inner.Embed(ctx, texts[i])
		require.NoError(t, err)
		assert.Equal(t, want, v, "index %d", i)
	}
}

func TestCachingEmbedderBatchRejectsEmptyInput(t *testing.T) {
	inner := mock.New(8)
	cached, err := provider.NewCachingEmbedder(inner, 16)
	require.NoError(t, err)

	_, err = cached.EmbedBatch(context.Background(), []string{"ok", ""})
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeInputEmpty))
}

func TestLimitedEmbedderPreservesBatchOrder(t *testing.T) {
	inner := mock.New(8)
	limited, err := provider.NewLimitedEmbedder(inner, 2)
	require.NoError(t, err)
	defer limited.Close()

	ctx := context.Background()
	texts := []string{"one", "two", "three", "four", "five"}
	vecs, err := limited.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	for i, text := range texts {
		want, err := inner.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, want, vecs[i], "index %d", i)
	}
}

func TestLimitedEmbedderBatchFailsFast(t *testing.T) {
	inner := mock.New(8)
	inner.FailTimes(1, recallerr.New(recallerr.CodeProviderUpstream, "boom"))
	limited, err := provider.NewLimitedEmbedder(inner, 1)
	require.NoError(t, err)
	defer limited.Close()

	_, err = limited.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, recallerr.IsTransient(err))
}

func TestLimitedEmbedderDeadlineIsNotRetryable(t *testing.T) {
	inner := mock.New(8)
	block := make(chan struct{})
	defer close(block)
	inner.SetEmbedFunc(func(string) ([]float32, error) {
		<-block
		return nil, nil
	})

	limited, err := provider.NewLimitedEmbedder(inner, 1)
	require.NoError(t, err)
	defer limited.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = limited.Embed(ctx, "slow upstream")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeProviderTimeout))
	assert.True(t, recallerr.IsTimeout(err))
	assert.False(t, recallerr.IsTransient(err), "a dead context must not trigger a retry")
}

func TestLimitedEmbedderCancellationIsNotRetryable(t *testing.T) {
	inner := mock.New(8)
	limited, err := provider.NewLimitedEmbedder(inner, 1)
	require.NoError(t, err)
	defer limited.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = limited.Embed(ctx, "canceled before dispatch")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeProviderCanceled))
	assert.False(t, recallerr.IsTransient(err))
}

func TestHealthTrackerCooldown(t *testing.T) {
	tracker, err := provider.NewHealthTracker(30 * time.Second)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.SetNowFunc(func() time.Time { return now })

	assert.True(t, tracker.IsHealthy())

	tracker.RecordFailure()
	assert.False(t, tracker.IsHealthy())

	now = now.Add(29 * time.Second)
	assert.False(t, tracker.IsHealthy())

	now = now.Add(2 * time.Second)
	assert.True(t, tracker.IsHealthy(), "cooldown elapsed, provider eligible for retry")

	metrics := tracker.HealthMetrics()
	assert.Equal(t, int64(1), metrics.FailureCount)
	require.NotNil(t, metrics.LastFailureAt)

	tracker.RecordSuccess()
	assert.True(t, tracker.IsHealthy())
	assert.Nil(t, tracker.HealthMetrics().CooldownUntil)
}

func TestHealthTrackerRejectsNonPositiveCooldown(t *testing.T) {
	_, err := provider.NewHealthTracker(0)
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeConfigInvalidValue))
}
