// Package resonance computes subspace resonance: cosine similarity over
// weighted, named sub-vectors of a fixed-width embedding.
package resonance

import (
	"fmt"
	"math"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
	"github.com/kindred-labs/resonance/internal/domain/subspace"
)

// Scorer evaluates subspace resonance against a fixed partition.
// Stateless after construction, safe for concurrent use.
type Scorer struct {
	partition subspace.Partition
}

// New creates a scorer over a validated partition.
func New(partition subspace.Partition) *Scorer {
	return &Scorer{partition: partition}
}

// Calculate returns the weighted sum of per-subspace cosine similarities,
// clamped to [0,1]. Individual subspace contributions may be negative;
// only the sum is clamped. Both embeddings must match the partition width
// and contain only finite values.
func (s *Scorer) Calculate(a, b []float32) (float64, error) {
	if err := s.validate(a, b); err != nil {
		return 0, err
	}
	return s.score(a, b), nil
}

// CalculateBatch scores one embedding against many candidates. Defined as
// element-wise equivalent to individual Calculate calls; the query vector
// is validated once up front.
func (s *Scorer) CalculateBatch(query []float32, candidates [][]float32) ([]float64, error) {
	if err := domain.ValidateVector(query, s.partition.Width()); err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		if err := domain.ValidateVector(c, s.partition.Width()); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out[i] = s.score(query, c)
	}
	return out, nil
}

// SubspaceSimilarity returns the unweighted cosine similarity within one
// named subspace. Used by uplift feature extraction, which samples the
// interests and communication subspaces independently of their SR weight.
func (s *Scorer) SubspaceSimilarity(a, b []float32, name string) (float64, error) {
	if err := s.validate(a, b); err != nil {
		return 0, err
	}
	sub, ok := s.partition.ByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown subspace %q", domain.ErrInvalidSubspaces, name)
	}
	return cosine(sub.Slice(a), sub.Slice(b)), nil
}

func (s *Scorer) validate(a, b []float32) error {
	if err := domain.ValidateVector(a, s.partition.Width()); err != nil {
		return fmt.Errorf("embedding a: %w", err)
	}
	if err := domain.ValidateVector(b, s.partition.Width()); err != nil {
		return fmt.Errorf("embedding b: %w", err)
	}
	return nil
}

func (s *Scorer) score(a, b []float32) float64 {
	var sum float64
	for _, sub := range s.partition.Subspaces() {
		sum += sub.Weight() * cosine(sub.Slice(a), sub.Slice(b))
	}
	return rbs.Clamp(sum)
}

// cosine returns the cosine similarity of two equal-length slices.
// Defined as 0 when either slice has zero magnitude.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
