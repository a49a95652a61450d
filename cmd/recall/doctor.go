// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/secrets"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check configuration, the vector store, and embedding provider credentials.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	checks := []struct {
		name string
		fn   func(cmd *cobra.Command) string
	}{
		{"Platform", checkPlatform},
		{"Config", checkConfig},
		{"Store", checkStore},
		{"Credentials", checkCredentials},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-15s %s\n", c.name+":", c.fn(cmd)); err != nil {
			return err
		}
	}

	return nil
}

func checkPlatform(_ *cobra.Command) string {
	return fmt.Sprintf("ok (%s/%s, %s)", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cmd *cobra.Command) string {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Sprintf("FAIL (%v)", err)
	}
	return fmt.Sprintf("ok (provider=%s backend=%s dims=%d)",
		cfg.Embedding.Provider, cfg.Storage.Backend, cfg.Storage.VectorDimensions)
}

func checkStore(cmd *cobra.Command) string {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "skipped (config invalid)"
	}

	st, err := buildStore(cfg)
	if err != nil {
		return fmt.Sprintf("FAIL (%v)", err)
	}
	defer func() { _ = st.Close() }()

	return fmt.Sprintf("ok (%s, %d dimensions)", cfg.Storage.Backend, st.Dimensions())
}

func checkCredentials(cmd *cobra.Command) string {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "skipped (config invalid)"
	}

	if cfg.Embedding.Provider == "local" {
		return "ok (local provider needs no credential)"
	}
	if cfg.Embedding.APIKey == "" {
		return "MISSING (set embedding.api_key or RECALL_EMBEDDING_API_KEY)"
	}
	if !secrets.IsKeyringURI(cfg.Embedding.APIKey) {
		return "ok (literal key in config; consider keyring://)"
	}

	if _, err := secrets.ResolveKeyringURI(secrets.NewKeyringStore(), cfg.Embedding.APIKey); err != nil {
		return fmt.Sprintf("FAIL (%v)", err)
	}
	return "ok (resolved from keyring)"
}
