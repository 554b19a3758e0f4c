package embed

import (
	"context"
	"math"
)

// vectorMagnitude computes the magnitude of a vector.
func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dotProduct, magA, magB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(magA) * math.Sqrt(magB))
}

// embedOne is the single-text test convenience wrapper around EmbedBatch,
// since Embedder only exposes batch embedding.
func embedOne(t interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}, text string) ([]float32, error) {
	out, err := t.EmbedBatch(context.Background(), []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}
