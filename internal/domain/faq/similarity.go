package faq

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of two equal length vectors.
// A zero-norm input yields 0 instead of dividing by zero.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// score guards Cosine against inputs that cannot be compared.
func score(query, candidate []float32) (float64, error) {
	if len(query) != len(candidate) {
		return 0, fmt.Errorf("dimension mismatch: query=%d entry=%d", len(query), len(candidate))
	}
	sim := Cosine(query, candidate)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, fmt.Errorf("similarity is not finite")
	}
	return sim, nil
}
