package textproc

import "math"

// Cosine returns the cosine of the angle between a and b, or 0 when the
// vectors differ in dimension or either has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// VectorSimilarity maps cosine similarity onto [0,1] so the vector signal
// reports in the same bounded range as the lexical ones.
func VectorSimilarity(a, b []float32) float64 {
	return (1 + Cosine(a, b)) / 2
}
