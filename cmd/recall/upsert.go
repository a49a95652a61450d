// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/store"
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func newUpsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert <owner> <external-id>",
		Short: "Insert or update a conversation record",
		Long:  "Embed the summary and store it under (owner, external-id). Re-upserting the same external-id replaces the embedding, metadata, and tag set.",
		Args:  cobra.ExactArgs(2),
		RunE:  runUpsert,
	}

	cmd.Flags().String("summary", "", "conversation summary to embed (required)")
	cmd.Flags().String("outcome", "", "conversation outcome (solved, partial, unsolved, revisited; empty means unknown)")
	cmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")
	cmd.Flags().Float64("satisfaction", -1, "explicit satisfaction score in [0,1]")
	_ = cmd.MarkFlagRequired("summary")

	return cmd
}

func runUpsert(cmd *cobra.Command, args []string) error {
	owner, externalID := args[0], args[1]

	summary, _ := cmd.Flags().GetString("summary")
	if summary == "" {
		return recallerr.New(recallerr.CodeCLIInputInvalid, "--summary must not be empty")
	}

	rawOutcome, _ := cmd.Flags().GetString("outcome")
	outcome, err := store.ParseOutcome(rawOutcome)
	if err != nil {
		return err
	}

	tags, _ := cmd.Flags().GetStringSlice("tag")

	rec := &store.Record{
		Owner:      owner,
		ExternalID: externalID,
		Summary:    summary,
		Outcome:    outcome,
		Tags:       tags,
		CreatedAt:  time.Now().UTC(),
	}

	if satisfaction, _ := cmd.Flags().GetFloat64("satisfaction"); satisfaction >= 0 {
		rec.Satisfaction = &satisfaction
	}

	svc, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	id, err := svc.Upsert(cmd.Context(), rec)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
