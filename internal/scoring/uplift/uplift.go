// Package uplift estimates the incremental benefit of coaching for a pair
// via a fixed two-model (treatment vs control) linear-sigmoid estimator.
package uplift

import (
	"fmt"
	"math"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
)

// nearZero is the sparsity threshold for the confidence heuristic.
const nearZero = 1e-6

// Prediction is the estimator output for one feature vector.
type Prediction struct {
	TreatmentEffect float64 // clamped to [0,1]
	Confidence      float64 // engineering proxy, not a statistical interval
	ModelVersion    string
}

// Model holds the two fixed weight vectors. Immutable after construction;
// identical input always yields bit-identical output.
type Model struct {
	treatment []float64
	control   []float64
	version   string
}

// NewModel validates and builds an estimator. Both weight vectors must be
// non-empty, the same length, and finite.
func NewModel(treatment, control []float64, version string) (*Model, error) {
	if len(treatment) == 0 {
		return nil, fmt.Errorf("uplift model: empty treatment weights")
	}
	if len(treatment) != len(control) {
		return nil, fmt.Errorf("uplift model: treatment/control length mismatch: %d vs %d",
			len(treatment), len(control))
	}
	for i := range treatment {
		if !finite(treatment[i]) || !finite(control[i]) {
			return nil, fmt.Errorf("uplift model: %w at weight %d", domain.ErrNonFiniteInput, i)
		}
	}
	m := &Model{
		treatment: append([]float64(nil), treatment...),
		control:   append([]float64(nil), control...),
		version:   version,
	}
	return m, nil
}

// FeatureWidth returns the expected feature vector length.
func (m *Model) FeatureWidth() int { return len(m.treatment) }

// Version returns the model version tag.
func (m *Model) Version() string { return m.version }

// Predict computes μ1 = σ(features·treatment), μ0 = σ(features·control) and
// the clamped effect μ1 − μ0. A negative raw effect clamps to 0: coaching is
// never reported as harmful. Short feature vectors are zero-padded, long
// ones truncated; non-finite values fail fast.
func (m *Model) Predict(features []float64) (Prediction, error) {
	for i, f := range features {
		if !finite(f) {
			return Prediction{}, fmt.Errorf("%w: feature %d", domain.ErrNonFiniteInput, i)
		}
	}
	fitted := m.fit(features)

	mu1 := sigmoid(dot(fitted, m.treatment))
	mu0 := sigmoid(dot(fitted, m.control))

	return Prediction{
		TreatmentEffect: rbs.Clamp(mu1 - mu0),
		Confidence:      confidence(fitted),
		ModelVersion:    m.version,
	}, nil
}

// Calculate is a thin wrapper returning only the treatment effect.
func (m *Model) Calculate(features []float64) (float64, error) {
	p, err := m.Predict(features)
	if err != nil {
		return 0, err
	}
	return p.TreatmentEffect, nil
}

// fit zero-pads or truncates features to the model width.
func (m *Model) fit(features []float64) []float64 {
	width := len(m.treatment)
	if len(features) == width {
		return features
	}
	fitted := make([]float64, width)
	copy(fitted, features)
	return fitted
}

// confidence combines feature density (1 − near-zero fraction) and variance
// into a single [0,1] heuristic. Variance saturates via v/(v+1).
func confidence(features []float64) float64 {
	n := len(features)
	if n == 0 {
		return 0
	}

	var zeros int
	var sum float64
	for _, f := range features {
		if math.Abs(f) < nearZero {
			zeros++
		}
		sum += f
	}
	density := 1 - float64(zeros)/float64(n)

	mean := sum / float64(n)
	var variance float64
	for _, f := range features {
		d := f - mean
		variance += d * d
	}
	variance /= float64(n)

	return rbs.Clamp(0.6*density + 0.4*variance/(variance+1))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
