package score

import (
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/scoring/infogain"
	scsafety "github.com/kindred-labs/resonance/internal/scoring/safety"
	"github.com/kindred-labs/resonance/internal/scoring/uplift"
)

// ResonanceScorer computes subspace resonance between two embeddings.
type ResonanceScorer interface {
	Calculate(a, b []float32) (float64, error)
	SubspaceSimilarity(a, b []float32, name string) (float64, error)
}

// UpliftEstimator predicts the coaching treatment effect for a feature vector.
type UpliftEstimator interface {
	Predict(features []float64) (uplift.Prediction, error)
}

// GainScorer scores single-profile completeness.
type GainScorer interface {
	CalculateDetailed(p *profile.Profile) infogain.Details
}

// SafetyEvaluator computes the pairwise safety penalty.
type SafetyEvaluator interface {
	CalculateDetailed(a, b domsafety.Profile) scsafety.Details
}
