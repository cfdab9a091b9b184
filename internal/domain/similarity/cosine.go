// Package similarity holds the scoring primitives used by the matcher:
// cosine similarity over embeddings and the token-overlap indicators attached to each match.
package similarity

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Accumulates in float64. Returns 0 for mismatched lengths or a zero-norm vector.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
