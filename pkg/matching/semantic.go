package matching

import "math"

// CosineSimilarity returns the normalized dot product of two vectors. Vectors
// of mismatched dimensionality or zero magnitude score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
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

// BestEmbeddingMatch scans the pool for the candidate whose stored embedding
// is closest to the incoming embedding. Candidates without an embedding are
// skipped. Returns the pool index and score, or -1 when no candidate is
// eligible. Ties keep the first candidate in pool order.
func BestEmbeddingMatch(embedding []float64, pool []Candidate) (int, float64) {
	bestIdx := -1
	bestScore := 0.0

	for i := range pool {
		if len(pool[i].Embedding) == 0 {
			continue
		}
		score := CosineSimilarity(embedding, pool[i].Embedding)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return bestIdx, bestScore
}
