// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func init() {
	keyring.MockInit()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "recall dev")
}

func TestRootListsSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "upsert", "delete", "stats", "secret", "doctor", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestSecretSetListDelete(t *testing.T) {
	out, err := execute(t, "secret", "set", "openai", "sk-test-123")
	require.NoError(t, err)
	assert.Contains(t, out, "keyring://recall/openai")

	out, err = execute(t, "secret", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "openai")

	out, err = execute(t, "secret", "delete", "openai")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted secret: openai")

	_, err = execute(t, "secret", "delete", "openai")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeSecretNotFound))
}

func TestSearchRejectsInvalidOutcome(t *testing.T) {
	_, err := execute(t, "search", "u1", "query", "--outcome", "bogus")
	require.Error(t, err)
}

func TestSearchRejectsInvalidTimestamp(t *testing.T) {
	_, err := execute(t, "search", "u1", "query", "--since", "yesterday")
	require.Error(t, err)
	assert.True(t, recallerr.HasCode(err, recallerr.CodeCLIInputInvalid))
}

func TestUpsertRequiresSummary(t *testing.T) {
	_, err := execute(t, "upsert", "u1", "c1")
	require.Error(t, err)
}
