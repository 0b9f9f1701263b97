package storage

import (
	"hash/fnv"
	"math"
	"strings"
)

// EmbeddingDims is the fixed dimensionality of the borrower-summary
// vectors stored in Qdrant.
const EmbeddingDims = 256

// embedText produces a deterministic hashed-bag-of-words vector: each
// lowercased token hashes into a bucket, counts are accumulated, and
// the result is L2-normalized. No embedding model is available in this
// worker's dependency set, so semantic search runs in this reduced
// space as a best-effort convenience rather than a true semantic
// embedding.
func embedText(text string) []float32 {
	vec := make([]float64, EmbeddingDims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		bucket := int(h.Sum32()) % EmbeddingDims
		if bucket < 0 {
			bucket += EmbeddingDims
		}
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, EmbeddingDims)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
