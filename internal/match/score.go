package match

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity of two vectors. Vectors of
// different lengths or zero magnitude score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// PooledScore scores two vector sets as the mean of the k largest pairwise
// cosine similarities. An empty side scores 0; fewer than k pairs pool over
// all of them.
func PooledScore(a, b [][]float64, k int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if k <= 0 {
		k = 1
	}

	sims := make([]float64, 0, len(a)*len(b))
	for _, va := range a {
		for _, vb := range b {
			sims = append(sims, CosineSimilarity(va, vb))
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if k > len(sims) {
		k = len(sims)
	}

	var sum float64
	for _, s := range sims[:k] {
		sum += s
	}
	return sum / float64(k)
}
