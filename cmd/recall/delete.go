// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <owner> <record-id>",
		Short: "Delete a conversation record",
		Args:  cobra.ExactArgs(2),
		RunE:  runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	owner, id := args[0], args[1]

	svc, err := buildService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	deleted, err := svc.Delete(cmd.Context(), owner, id)
	if err != nil {
		return err
	}
	if !deleted {
		return recallerr.Errorf(recallerr.CodeStoreNotFound, "record %q not found for owner %q", id, owner)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted record: %s\n", id)
	return nil
}
