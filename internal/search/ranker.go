// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

package search

import (
	"math"
	"sort"
	"time"

	"github.com/recall-dev/recall/internal/store"
)

// Weights controls the blend of ranking signals. They need not sum
// to 1 when a caller overrides the defaults.
type Weights struct {
	Vector       float64
	Keyword      float64
	Recency      float64
	Satisfaction float64
}

// DefaultWeights favors vector similarity, with keyword overlap as the
// secondary signal and recency/satisfaction as mild nudges.
func DefaultWeights() Weights {
	return Weights{
		Vector:       0.60,
		Keyword:      0.30,
		Recency:      0.07,
		Satisfaction: 0.03,
	}
}

// recencyHalfLife is the age at which the recency boost halves.
const recencyHalfLife = 30 * 24 * time.Hour

// Result is a ranked search hit. Similarity is the raw vector cosine,
// the boost fields are the remaining per-signal inputs, and Score is
// the blended value used for final ordering.
type Result struct {
	Record           *store.Record `json:"record"`
	Similarity       float64       `json:"similarity"`
	KeywordRelevance float64       `json:"keyword_relevance"`
	RecencyBoost     float64       `json:"recency_boost"`
	Satisfaction     float64       `json:"satisfaction_boost"`
	Score            float64       `json:"score"`
}

// Rank blends vector similarity, keyword overlap, recency, and outcome
// satisfaction into a final score and orders candidates by it. It is a
// pure function of its inputs: identical candidates, query, and clock
// always produce identical ordering.
//
// Candidates below minSimilarity are excluded before scoring, on raw
// similarity, so the blended signals can never pull a weak vector match
// back over the threshold.
func Rank(candidates []store.Match, query string, weights Weights, minSimilarity float64, now time.Time) []Result {
	results := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Similarity < minSimilarity {
			continue
		}
		keyword := keywordRelevance(cand.Record.Summary, query)
		recency := recencyBoost(cand.Record.CreatedAt, now)
		satisfaction := satisfactionBoost(cand.Record)
		score := weights.Vector*cand.Similarity +
			weights.Keyword*keyword +
			weights.Recency*recency +
			weights.Satisfaction*satisfaction
		results = append(results, Result{
			Record:           cand.Record,
			Similarity:       cand.Similarity,
			KeywordRelevance: keyword,
			RecencyBoost:     recency,
			Satisfaction:     satisfaction,
			Score:            score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Record.CreatedAt.Equal(results[j].Record.CreatedAt) {
			return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	return results
}

// recencyBoost decays exponentially with record age: a brand-new record
// scores 1, a 30-day-old record 0.5, a 60-day-old record 0.25.
func recencyBoost(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(recencyHalfLife))
}

// outcomeScores maps conversation outcomes to a satisfaction signal.
var outcomeScores = map[store.Outcome]float64{
	store.OutcomeSolved:    1.0,
	store.OutcomePartial:   0.5,
	store.OutcomeRevisited: 0.3,
	store.OutcomeUnsolved:  0,
	store.OutcomeUnknown:   0,
}

// satisfactionBoost derives a [0,1] signal from the record outcome,
// blended evenly with the explicit satisfaction score when one was
// recorded.
func satisfactionBoost(rec *store.Record) float64 {
	base := outcomeScores[rec.Outcome]
	if rec.Satisfaction == nil {
		return base
	}
	return 0.5*base + 0.5**rec.Satisfaction
}
