package domain

import (
	"context"
	"fmt"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ValidateVector checks that a vector has the expected width and contains only finite values.
func ValidateVector(vec []float32, width int) error {
	if len(vec) != width {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), width)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: element %d", ErrNonFiniteInput, i)
		}
	}
	return nil
}
