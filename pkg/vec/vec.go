// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Recall Contributors

// Package vec provides the small amount of vector math shared by the
// embedding provider boundary and the store backends.
package vec

import (
	"math"

	recallerr "github.com/recall-dev/recall/pkg/errors"
)

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Vectors of unequal length are rejected. If either vector has zero
// magnitude the similarity is 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, recallerr.Errorf(recallerr.CodeConfigDimensionMismatch,
			"cosine: dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp(sim, -1, 1), nil
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged; callers that care must check Magnitude first.
func Normalize(v []float32) []float32 {
	mag := Magnitude(v)
	out := make([]float32, len(v))
	if mag == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

// Magnitude returns the euclidean norm of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CheckDimensions rejects vectors whose length differs from want.
// Mismatched vectors are never truncated or padded.
func CheckDimensions(v []float32, want int) error {
	if len(v) != want {
		return recallerr.Errorf(recallerr.CodeConfigDimensionMismatch,
			"vector has %d dimensions, store requires %d", len(v), want)
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
