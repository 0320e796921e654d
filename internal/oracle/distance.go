package oracle

import (
	"fmt"
	"math"
)

// Metric names accepted by DistanceFunc.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// EuclideanDistance computes the L2 distance between two embeddings.
// This is the metric face_recognition style 128-d descriptors are tuned for;
// 0.6 and 0.7 are the usual thresholds.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1) // Invalid input never matches
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
func CosineDistance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	similarity = max(-1, min(1, similarity))

	return 1 - similarity
}

// DistanceFunc resolves a metric name. An empty name selects euclidean.
func DistanceFunc(metric string) (func(a, b Embedding) float64, error) {
	switch metric {
	case "", MetricEuclidean:
		return EuclideanDistance, nil
	case MetricCosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance metric: %s", metric)
	}
}
