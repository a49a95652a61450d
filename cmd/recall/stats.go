// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <owner>",
		Short: "Show record counts for an owner",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	owner := args[0]

	svc, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stats, err := svc.Stats(cmd.Context(), owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Owner:       %s\n", owner)
	_, _ = fmt.Fprintf(out, "Records:     %d\n", stats.Count)
	_, _ = fmt.Fprintf(out, "Utilization: %.1f%%\n", stats.UtilizationPercent)
	return nil
}
