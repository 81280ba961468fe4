// Package rbs holds the resonance-based scoring value objects: the weight
// simplex, the four component scores, and the combined score.
package rbs

import (
	"fmt"
	"math"
	"time"

	"github.com/kindred-labs/resonance/internal/domain"
)

const (
	// simplexTolerance bounds |alpha+beta+gamma - 1.0|.
	simplexTolerance = 0.01
	// maxDelta caps the safety penalty weight.
	maxDelta = 0.3
)

// Weights is the validated RBS weight configuration.
// Immutable after construction via NewWeights.
type Weights struct {
	alpha float64
	beta  float64
	gamma float64
	delta float64
}

// NewWeights validates the simplex invariant: alpha, beta, gamma strictly
// positive and summing to 1.0 within tolerance; delta in [0, 0.3].
func NewWeights(alpha, beta, gamma, delta float64) (Weights, error) {
	for name, v := range map[string]float64{"alpha": alpha, "beta": beta, "gamma": gamma, "delta": delta} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, fmt.Errorf("%w: %s is not finite", domain.ErrInvalidWeights, name)
		}
	}
	if alpha <= 0 || beta <= 0 || gamma <= 0 {
		return Weights{}, fmt.Errorf(
			"%w: alpha, beta, gamma must be strictly positive, got %.3f/%.3f/%.3f",
			domain.ErrInvalidWeights, alpha, beta, gamma)
	}
	if sum := alpha + beta + gamma; math.Abs(sum-1.0) > simplexTolerance {
		return Weights{}, fmt.Errorf(
			"%w: alpha+beta+gamma = %.4f, want 1.0 ±%.2f", domain.ErrInvalidWeights, sum, simplexTolerance)
	}
	if delta < 0 || delta > maxDelta {
		return Weights{}, fmt.Errorf(
			"%w: delta %.3f outside [0, %.1f]", domain.ErrInvalidWeights, delta, maxDelta)
	}
	return Weights{alpha: alpha, beta: beta, gamma: gamma, delta: delta}, nil
}

// Alpha returns the subspace resonance weight.
func (w Weights) Alpha() float64 { return w.alpha }

// Beta returns the causal uplift weight.
func (w Weights) Beta() float64 { return w.beta }

// Gamma returns the information gain weight.
func (w Weights) Gamma() float64 { return w.gamma }

// Delta returns the safety penalty weight.
func (w Weights) Delta() float64 { return w.delta }

// Components are the four bounded component scores.
type Components struct {
	SR float64 // subspace resonance
	CU float64 // causal uplift
	IG float64 // information gain
	SC float64 // safety constraint penalty (higher = less safe)
}

// Combine applies the RBS formula: clamp(α·SR + β·CU + γ·IG − δ·SC, 0, 1).
func (w Weights) Combine(c Components) float64 {
	total := w.alpha*c.SR + w.beta*c.CU + w.gamma*c.IG - w.delta*c.SC
	return Clamp(total)
}

// Score is the combined result. Total is derived from Components via
// Weights.Combine and never mutated independently.
type Score struct {
	Components
	Total      float64
	ComputedAt time.Time
}

// NewScore derives a score from components at the given time.
func NewScore(w Weights, c Components, at time.Time) Score {
	return Score{Components: c, Total: w.Combine(c), ComputedAt: at}
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
