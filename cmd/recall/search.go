// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/search"
	"github.com/recall-dev/recall/internal/store"
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <owner> <query>",
		Short: "Search conversation history",
		Long:  "Embed the query and return the owner's most relevant conversation records, ranked by blended vector, keyword, recency, and outcome signals.",
		Args:  cobra.ExactArgs(2),
		RunE:  runSearch,
	}

	cmd.Flags().Int("limit", 0, "maximum results (0 uses the configured default)")
	cmd.Flags().Float64("min-similarity", 0, "minimum raw cosine similarity")
	cmd.Flags().StringSlice("tag", nil, "require results to carry this tag (repeatable; all must match)")
	cmd.Flags().String("outcome", "", "filter by outcome (solved, partial, unsolved, revisited, unknown)")
	cmd.Flags().String("since", "", "only records created on or after this RFC 3339 timestamp")
	cmd.Flags().String("until", "", "only records created on or before this RFC 3339 timestamp")
	cmd.Flags().Bool("json", false, "emit results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	owner, query := args[0], args[1]

	opts, err := searchOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	svc, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	results, err := svc.Search(cmd.Context(), owner, query, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No matches.")
		return nil
	}

	for i, r := range results {
		_, _ = fmt.Fprintf(out, "%2d. [%.3f] %s (%s, %s)\n    %s\n",
			i+1, r.Score, r.Record.ExternalID, r.Record.Outcome,
			r.Record.CreatedAt.Format("2006-01-02"), r.Record.Summary)
	}
	return nil
}

func searchOptionsFromFlags(cmd *cobra.Command) (search.Options, error) {
	var opts search.Options

	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.MinSimilarity, _ = cmd.Flags().GetFloat64("min-similarity")
	opts.Tags, _ = cmd.Flags().GetStringSlice("tag")

	if raw, _ := cmd.Flags().GetString("outcome"); raw != "" {
		outcome, err := store.ParseOutcome(raw)
		if err != nil {
			return opts, err
		}
		opts.Outcome = outcome
	}

	var err error
	if opts.Since, err = parseTimeFlag(cmd, "since"); err != nil {
		return opts, err
	}
	if opts.Until, err = parseTimeFlag(cmd, "until"); err != nil {
		return opts, err
	}

	return opts, nil
}

func parseTimeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, recallerr.Errorf(recallerr.CodeCLIInputInvalid,
			"--%s must be RFC 3339 (e.g. 2026-01-02T15:04:05Z), got %q", name, raw)
	}
	return t, nil
}
