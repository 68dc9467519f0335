// Package embed provides the embedding-provider contract, its two-tier
// cache, and HTTP-status-aware retry used by the indexer and searcher.
package embed

import (
	"context"
	"math"
)

// Batch-size bounds for requests to the embedding provider.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 100
)

// Embedder generates vector embeddings for text against a single
// provider+model pair. Implementations must be safe for concurrent use.
type Embedder interface {
	// Initialize establishes the provider's embedding dimension by
	// embedding a probe string. It is idempotent; every other method
	// requires a successful Initialize first.
	Initialize(ctx context.Context) error

	// Embed generates the embedding for one text. An empty or
	// whitespace-only text short-circuits to a zero vector without a
	// provider round trip.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in as few
	// provider calls as the batch-size limit allows.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension, established by the
	// provider's first successful call.
	Dimensions() int

	// ModelName returns the model identifier used to namespace the disk
	// cache and passed to EstimateTokens during indexing.
	ModelName() string

	// Available probes the provider without embedding anything.
	Available(ctx context.Context) bool

	// Close releases resources (idle HTTP connections).
	Close() error
}

// normalizeVector normalizes a vector to unit length, leaving zero vectors
// untouched.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// isBlank reports whether text has no non-whitespace content.
func isBlank(text string) bool {
	for _, r := range text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
