// Package score combines the four component scorers into one resonance
// score per pair. Subspace resonance and causal uplift run concurrently;
// information gain and safety are cheap and computed inline.
package score

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/logger"
	"github.com/kindred-labs/resonance/internal/metrics"
	"github.com/kindred-labs/resonance/internal/scoring/infogain"
	scsafety "github.com/kindred-labs/resonance/internal/scoring/safety"
	"github.com/kindred-labs/resonance/internal/scoring/uplift"
)

// Subspaces sampled by uplift feature extraction.
const (
	subspaceInterests     = "interests"
	subspaceCommunication = "communication"
)

// featureWidth is the length of the uplift feature vector built by
// extractFeatures. The configured model weights must match it.
const featureWidth = 9

// PairInput carries everything needed to score one ordered pair.
type PairInput struct {
	UserA string
	UserB string

	EmbeddingA []float32
	EmbeddingB []float32

	ProfileA *profile.Profile
	ProfileB *profile.Profile

	SafetyA domsafety.Profile
	SafetyB domsafety.Profile
}

// Result is a combined score with its component breakdowns.
type Result struct {
	Score rbs.Score

	InfoGainA infogain.Details
	InfoGainB infogain.Details
	Safety    scsafety.Details
	Uplift    uplift.Prediction
}

// Service orchestrates the component scorers under a validated weight
// configuration and an advisory latency budget.
type Service struct {
	weights rbs.Weights
	sr      ResonanceScorer
	cu      UpliftEstimator
	ig      GainScorer
	sc      SafetyEvaluator
	budget  time.Duration
	now     func() time.Time
}

// New creates a score service. A zero budget disables the overrun warning.
func New(
	weights rbs.Weights,
	sr ResonanceScorer, cu UpliftEstimator, ig GainScorer, sc SafetyEvaluator,
	budget time.Duration,
) *Service {
	return &Service{
		weights: weights,
		sr:      sr,
		cu:      cu,
		ig:      ig,
		sc:      sc,
		budget:  budget,
		now:     time.Now,
	}
}

// Score computes the combined resonance score for one pair. Component
// semantics are independent of ordering: swapping A and B yields the same
// total.
func (s *Service) Score(ctx context.Context, in PairInput) (Result, error) {
	start := s.now()

	igStart := time.Now()
	igA := s.ig.CalculateDetailed(in.ProfileA)
	igB := s.ig.CalculateDetailed(in.ProfileB)
	metrics.ScoreDuration.WithLabelValues("ig").Observe(time.Since(igStart).Seconds())

	scStart := time.Now()
	safetyDetails := s.sc.CalculateDetailed(in.SafetyA, in.SafetyB)
	metrics.ScoreDuration.WithLabelValues("sc").Observe(time.Since(scStart).Seconds())

	type srOut struct {
		score float64
		err   error
	}
	type cuOut struct {
		pred uplift.Prediction
		err  error
	}

	srCh := make(chan srOut, 1)
	cuCh := make(chan cuOut, 1)

	go func() {
		t := time.Now()
		v, err := s.sr.Calculate(in.EmbeddingA, in.EmbeddingB)
		metrics.ScoreDuration.WithLabelValues("sr").Observe(time.Since(t).Seconds())
		srCh <- srOut{score: v, err: err}
	}()

	go func() {
		t := time.Now()
		features, err := s.extractFeatures(in, igA, igB)
		if err != nil {
			cuCh <- cuOut{err: err}
			return
		}
		pred, err := s.cu.Predict(features)
		metrics.ScoreDuration.WithLabelValues("cu").Observe(time.Since(t).Seconds())
		cuCh <- cuOut{pred: pred, err: err}
	}()

	sr := <-srCh
	cu := <-cuCh
	if sr.err != nil {
		return Result{}, fmt.Errorf("subspace resonance: %w", sr.err)
	}
	if cu.err != nil {
		return Result{}, fmt.Errorf("causal uplift: %w", cu.err)
	}

	components := rbs.Components{
		SR: sr.score,
		CU: cu.pred.TreatmentEffect,
		IG: (igA.Score + igB.Score) / 2,
		SC: safetyDetails.Score,
	}
	scored := rbs.NewScore(s.weights, components, s.now())

	elapsed := time.Since(start)
	metrics.ScoreDuration.WithLabelValues("total").Observe(elapsed.Seconds())
	metrics.ScoreTotals.Observe(scored.Total)

	if s.budget > 0 && elapsed > s.budget {
		metrics.ScoreBudgetOverrunsTotal.Inc()
		logger.FromContext(ctx).Warn("score latency budget exceeded",
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", s.budget),
			zap.String("user_a", in.UserA),
			zap.String("user_b", in.UserB),
		)
	}

	return Result{
		Score:     scored,
		InfoGainA: igA,
		InfoGainB: igB,
		Safety:    safetyDetails,
		Uplift:    cu.pred,
	}, nil
}

// ScoreBatch scores pairs independently, in order. One bad pair fails the
// whole batch; callers needing isolation score pair by pair.
func (s *Service) ScoreBatch(ctx context.Context, inputs []PairInput) ([]Result, error) {
	out := make([]Result, len(inputs))
	for i := range inputs {
		r, err := s.Score(ctx, inputs[i])
		if err != nil {
			return nil, fmt.Errorf("pair %d (%s, %s): %w", i, inputs[i].UserA, inputs[i].UserB, err)
		}
		out[i] = r
	}
	return out, nil
}

// Weights exposes the validated weight configuration.
func (s *Service) Weights() rbs.Weights { return s.weights }

// extractFeatures builds the uplift feature vector. Each feature is
// normalized to roughly [0,1] so the linear models stay in the sigmoid's
// responsive range.
func (s *Service) extractFeatures(in PairInput, igA, igB infogain.Details) ([]float64, error) {
	interests, err := s.subspaceFeature(in.EmbeddingA, in.EmbeddingB, subspaceInterests)
	if err != nil {
		return nil, err
	}
	comms, err := s.subspaceFeature(in.EmbeddingA, in.EmbeddingB, subspaceCommunication)
	if err != nil {
		return nil, err
	}

	ageGap := in.SafetyA.Age - in.SafetyB.Age
	if ageGap < 0 {
		ageGap = -ageGap
	}

	return []float64{
		interests,
		comms,
		igA.Score,
		igB.Score,
		float64(in.SafetyA.Age) / 100,
		float64(in.SafetyB.Age) / 100,
		float64(ageGap) / 100,
		clampUnit(float64(len(in.SafetyA.RedFlags)) / 5),
		clampUnit(float64(len(in.SafetyB.RedFlags)) / 5),
	}, nil
}

// subspaceFeature samples one named subspace's similarity. A partition
// without that subspace contributes a zero feature instead of failing the
// pair; invalid embeddings still propagate.
func (s *Service) subspaceFeature(a, b []float32, name string) (float64, error) {
	v, err := s.sr.SubspaceSimilarity(a, b, name)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSubspaces) {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
