// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package errors_test

import (
	stderrors "errors"
	"testing"

	recallerr "github.com/recall-dev/recall/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := recallerr.New(
		recallerr.CodeConfigInvalidValue,
		"invalid embedding configuration",
		recallerr.FieldOwner("u1"),
		recallerr.Field("provider", "openai"),
	)

	require.Error(t, err)
	assert.Equal(t, recallerr.CodeConfigInvalidValue, recallerr.CodeOf(err))
	assert.True(t, recallerr.HasCode(err, recallerr.CodeConfigInvalidValue))

	fields := recallerr.FieldsOf(err)
	assert.Equal(t, "u1", fields["owner"])
	assert.Equal(t, "openai", fields["provider"])
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := recallerr.Errorf(recallerr.CodeStoreDatabaseFailure, "opening %s: busy after %d ms", "vectors.db", 5000)
	require.Error(t, err)
	assert.Equal(t, recallerr.CodeStoreDatabaseFailure, recallerr.CodeOf(err))
	assert.Contains(t, err.Error(), "opening vectors.db: busy after 5000 ms")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := recallerr.Errorf(recallerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, recallerr.CodeStoreDatabaseFailure, recallerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := recallerr.Wrap(
		root,
		recallerr.CodeStoreNotFound,
		"loading record",
		recallerr.FieldRecordID("rec-42"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, recallerr.CodeStoreNotFound, recallerr.CodeOf(err))
	assert.True(t, recallerr.IsNotFound(err))
	assert.Equal(t, "rec-42", recallerr.FieldsOf(err)["record_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, recallerr.Wrap(nil, recallerr.CodeStoreDatabaseFailure, "nothing"))
	assert.NoError(t, recallerr.Wrapf(nil, recallerr.CodeStoreDatabaseFailure, "nothing %d", 1))
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

func TestTransientAndPermanentClassification(t *testing.T) {
	rateLimited := recallerr.New(recallerr.CodeProviderRateLimited, "429 from upstream")
	network := recallerr.New(recallerr.CodeProviderNetwork, "connection reset")
	upstream := recallerr.New(recallerr.CodeProviderUpstream, "502 bad gateway")
	auth := recallerr.New(recallerr.CodeProviderAuth, "invalid api key")
	badReq := recallerr.New(recallerr.CodeProviderBadRequest, "unknown model")

	for _, err := range []error{rateLimited, network, upstream} {
		assert.True(t, recallerr.IsTransient(err), "expected transient: %v", err)
		assert.False(t, recallerr.IsPermanent(err))
	}
	for _, err := range []error{auth, badReq} {
		assert.True(t, recallerr.IsPermanent(err), "expected permanent: %v", err)
		assert.False(t, recallerr.IsTransient(err))
	}
}

func TestTimeoutClassification(t *testing.T) {
	err := recallerr.New(recallerr.CodeSearchTimeout, "search budget exceeded")
	assert.True(t, recallerr.IsTimeout(err))
	assert.False(t, recallerr.IsTransient(err))
}

func TestDimensionMismatchClassification(t *testing.T) {
	err := recallerr.Errorf(recallerr.CodeConfigDimensionMismatch, "got 3, want 1536")
	assert.True(t, recallerr.IsDimensionMismatch(err))
	assert.True(t, recallerr.IsConfigError(err))
}

func TestInputAndStoreClassification(t *testing.T) {
	assert.True(t, recallerr.IsInputError(recallerr.New(recallerr.CodeInputEmpty, "empty text")))
	assert.True(t, recallerr.IsStoreError(recallerr.New(recallerr.CodeStoreDatabaseFailure, "locked")))
}

func TestCodeOfNonOopsError(t *testing.T) {
	assert.Equal(t, recallerr.Code(""), recallerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, recallerr.Code(""), recallerr.CodeOf(nil))
}
