// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package store

import (
	recallerr "github.com/recall-dev/recall/pkg/errors"
)

func errInvalidOutcome(raw string) error {
	return recallerr.Errorf(recallerr.CodeStoreInvalidInput,
		"outcome must be one of [solved, partial, unsolved, revisited, unknown], got %q", raw)
}

// ValidateRecord checks a record before it reaches a backend. Dimension
// mismatches are rejected here so no backend ever truncates or pads.
func ValidateRecord(rec *Record, dims int) error {
	if rec == nil {
		return recallerr.New(recallerr.CodeStoreInvalidInput, "record must not be nil")
	}
	if rec.Owner == "" {
		return recallerr.New(recallerr.CodeStoreInvalidInput, "record owner must not be empty")
	}
	if rec.ExternalID == "" {
		return recallerr.New(recallerr.CodeStoreInvalidInput, "record external id must not be empty",
			recallerr.FieldOwner(rec.Owner))
	}
	if rec.ContentHash == "" {
		return recallerr.New(recallerr.CodeStoreInvalidInput, "record content hash must not be empty",
			recallerr.FieldOwner(rec.Owner))
	}
	if len(rec.Embedding) != dims {
		return recallerr.Errorf(recallerr.CodeConfigDimensionMismatch,
			"record embedding has %d dimensions, store requires %d", len(rec.Embedding), dims)
	}
	if _, err := ParseOutcome(string(rec.Outcome)); err != nil {
		return err
	}
	if rec.Satisfaction != nil && (*rec.Satisfaction < 0 || *rec.Satisfaction > 1) {
		return recallerr.Errorf(recallerr.CodeStoreInvalidInput,
			"satisfaction score must be in [0,1], got %g", *rec.Satisfaction)
	}
	return nil
}
