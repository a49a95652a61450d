// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recall-dev/recall/internal/secrets"
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func TestParseKeyringURI(t *testing.T) {
	service, key, err := secrets.ParseKeyringURI("keyring://recall/openai")
	require.NoError(t, err)
	assert.Equal(t, "recall", service)
	assert.Equal(t, "openai", key)

	// Keys may contain slashes; only the first one splits.
	service, key, err = secrets.ParseKeyringURI("keyring://recall/team/openai")
	require.NoError(t, err)
	assert.Equal(t, "recall", service)
	assert.Equal(t, "team/openai", key)
}

func TestParseKeyringURIMalformed(t *testing.T) {
	for _, uri := range []string{
		"keyring://",
		"keyring://service-only",
		"keyring:///key-only",
		"keyring://service/",
		"sk-literal-value",
	} {
		_, _, err := secrets.ParseKeyringURI(uri)
		require.Error(t, err, "uri %q", uri)
		assert.True(t, recallerr.HasCode(err, recallerr.CodeSecretInvalidInput))
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("recall", "openai", "sk-from-keyring"))

	val, err := secrets.ResolveKeyringURI(ks, "keyring://recall/openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-keyring", val)
}

func TestResolveKeyringURIPassthrough(t *testing.T) {
	ks := secrets.NewKeyringStore()

	val, err := secrets.ResolveKeyringURI(ks, "sk-literal")
	require.NoError(t, err)
	assert.Equal(t, "sk-literal", val)
}

func TestResolveKeyringURINotFound(t *testing.T) {
	ks := secrets.NewKeyringStore()

	_, err := secrets.ResolveKeyringURI(ks, "keyring://recall/missing")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeSecretResolveFailure))
}
