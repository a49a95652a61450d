// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package store

import (
	"time"
)

// Outcome is the closed set of conversation resolutions. Values outside
// this set are rejected at the ingestion boundary rather than stored.
type Outcome string

const (
	OutcomeSolved    Outcome = "solved"
	OutcomePartial   Outcome = "partial"
	OutcomeUnsolved  Outcome = "unsolved"
	OutcomeRevisited Outcome = "revisited"
	OutcomeUnknown   Outcome = "unknown"
)

// ParseOutcome validates a raw outcome string. The empty string maps to
// OutcomeUnknown; anything else outside the closed set is an error.
func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(raw) {
	case OutcomeSolved, OutcomePartial, OutcomeUnsolved, OutcomeRevisited, OutcomeUnknown:
		return Outcome(raw), nil
	case "":
		return OutcomeUnknown, nil
	default:
		return "", errInvalidOutcome(raw)
	}
}

// Record is a single indexed conversation transcript. Identity is
// (Owner, ExternalID); ID is assigned by the store on first insert.
type Record struct {
	ID          string
	Owner       string
	ExternalID  string
	Embedding   []float32
	ContentHash string

	// Metadata carried alongside the vector.
	Summary      string
	Outcome      Outcome
	Tags         []string
	Satisfaction *float64 // optional explicit satisfaction score in [0,1]
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Match is a single raw nearest-neighbor hit. Similarity is cosine
// similarity in [-1, 1]; blended ranking happens outside the store.
type Match struct {
	Record     *Record
	Similarity float64
}

// Stats summarizes an owner's slice of the store.
type Stats struct {
	Count              int64
	UtilizationPercent float64
}

// SearchOpts constrains a nearest-neighbor query.
type SearchOpts struct {
	// K is the maximum number of matches to return.
	K int
	// MinSimilarity excludes matches below this raw cosine similarity.
	// A match exactly at the threshold is included.
	MinSimilarity float64
	// Tags, when non-empty, requires a match to carry every listed tag.
	Tags []string
}
