package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/scoring/infogain"
	scsafety "github.com/kindred-labs/resonance/internal/scoring/safety"
	"github.com/kindred-labs/resonance/internal/scoring/uplift"
)

// --- Mocks ---

type stubResonance struct {
	score     float64
	err       error
	subspaces map[string]float64
}

func (s *stubResonance) Calculate(a, b []float32) (float64, error) {
	return s.score, s.err
}

func (s *stubResonance) SubspaceSimilarity(a, b []float32, name string) (float64, error) {
	v, ok := s.subspaces[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown subspace %q", domain.ErrInvalidSubspaces, name)
	}
	return v, nil
}

type stubUplift struct {
	pred     uplift.Prediction
	err      error
	features []float64
}

func (s *stubUplift) Predict(features []float64) (uplift.Prediction, error) {
	s.features = append([]float64(nil), features...)
	if s.err != nil {
		return uplift.Prediction{}, s.err
	}
	return s.pred, nil
}

type stubGain struct {
	details map[string]infogain.Details
}

func (s *stubGain) CalculateDetailed(p *profile.Profile) infogain.Details {
	return s.details[p.UserID()]
}

type stubSafety struct {
	details scsafety.Details
}

func (s *stubSafety) CalculateDetailed(a, b domsafety.Profile) scsafety.Details {
	return s.details
}

// --- Tests ---

func testWeights(t *testing.T) rbs.Weights {
	t.Helper()
	w, err := rbs.NewWeights(0.4, 0.3, 0.3, 0.2)
	if err != nil {
		t.Fatalf("NewWeights failed: %v", err)
	}
	return w
}

func testInput() PairInput {
	return PairInput{
		UserA:      "alice",
		UserB:      "bob",
		EmbeddingA: []float32{1, 0},
		EmbeddingB: []float32{0, 1},
		ProfileA:   profile.New("alice"),
		ProfileB:   profile.New("bob"),
		SafetyA:    domsafety.Profile{UserID: "alice", Age: 30},
		SafetyB:    domsafety.Profile{UserID: "bob", Age: 40},
	}
}

func TestScore_CombinesComponents(t *testing.T) {
	sr := &stubResonance{score: 0.9, subspaces: map[string]float64{
		subspaceInterests:     0.6,
		subspaceCommunication: 0.4,
	}}
	cu := &stubUplift{pred: uplift.Prediction{TreatmentEffect: 0.75, Confidence: 0.8, ModelVersion: "v1"}}
	ig := &stubGain{details: map[string]infogain.Details{
		"alice": {Score: 0.7},
		"bob":   {Score: 0.9},
	}}
	sc := &stubSafety{details: scsafety.Details{Score: 0.25}}

	svc := New(testWeights(t), sr, cu, ig, sc, 0)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	got, err := svc.Score(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// 0.4*0.9 + 0.3*0.75 + 0.3*0.8 - 0.2*0.25 = 0.775
	if math.Abs(got.Score.Total-0.775) > 1e-9 {
		t.Errorf("Total = %v, want 0.775", got.Score.Total)
	}
	if got.Score.SR != 0.9 || got.Score.CU != 0.75 || got.Score.SC != 0.25 {
		t.Errorf("components = %+v", got.Score.Components)
	}
	if math.Abs(got.Score.IG-0.8) > 1e-12 {
		t.Errorf("IG = %v, want mean 0.8", got.Score.IG)
	}
	if !got.Score.ComputedAt.Equal(at) {
		t.Errorf("ComputedAt = %v, want %v", got.Score.ComputedAt, at)
	}
	if got.InfoGainA.Score != 0.7 || got.InfoGainB.Score != 0.9 {
		t.Errorf("info gain details = %+v / %+v", got.InfoGainA, got.InfoGainB)
	}
	if got.Uplift.ModelVersion != "v1" {
		t.Errorf("uplift details = %+v", got.Uplift)
	}
}

func TestScore_FeatureVector(t *testing.T) {
	sr := &stubResonance{score: 0.5, subspaces: map[string]float64{
		subspaceInterests:     0.6,
		subspaceCommunication: 0.4,
	}}
	cu := &stubUplift{}
	ig := &stubGain{details: map[string]infogain.Details{
		"alice": {Score: 0.7},
		"bob":   {Score: 0.9},
	}}

	svc := New(testWeights(t), sr, cu, ig, &stubSafety{}, 0)

	in := testInput()
	in.SafetyA.RedFlags = []domsafety.RedFlag{"a", "b"}
	in.SafetyB.RedFlags = []domsafety.RedFlag{"a", "b", "c", "d", "e", "f", "g"}

	if _, err := svc.Score(context.Background(), in); err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	want := []float64{0.6, 0.4, 0.7, 0.9, 0.3, 0.4, 0.1, 0.4, 1.0}
	if len(cu.features) != featureWidth {
		t.Fatalf("feature width = %d, want %d", len(cu.features), featureWidth)
	}
	for i := range want {
		if math.Abs(cu.features[i]-want[i]) > 1e-12 {
			t.Errorf("feature %d = %v, want %v", i, cu.features[i], want[i])
		}
	}
}

func TestScore_MissingSubspaceContributesZeroFeature(t *testing.T) {
	sr := &stubResonance{score: 0.5, subspaces: map[string]float64{
		subspaceInterests: 0.6,
	}}
	cu := &stubUplift{}
	svc := New(testWeights(t), sr, cu, &stubGain{}, &stubSafety{}, 0)

	if _, err := svc.Score(context.Background(), testInput()); err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if cu.features[1] != 0 {
		t.Errorf("missing communication subspace feature = %v, want 0", cu.features[1])
	}
}

func TestScore_ComponentErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	okSR := map[string]float64{subspaceInterests: 0.5, subspaceCommunication: 0.5}

	t.Run("resonance", func(t *testing.T) {
		svc := New(testWeights(t),
			&stubResonance{err: boom, subspaces: okSR},
			&stubUplift{}, &stubGain{}, &stubSafety{}, 0)
		if _, err := svc.Score(context.Background(), testInput()); !errors.Is(err, boom) {
			t.Errorf("expected resonance error, got %v", err)
		}
	})

	t.Run("uplift", func(t *testing.T) {
		svc := New(testWeights(t),
			&stubResonance{score: 0.5, subspaces: okSR},
			&stubUplift{err: boom}, &stubGain{}, &stubSafety{}, 0)
		if _, err := svc.Score(context.Background(), testInput()); !errors.Is(err, boom) {
			t.Errorf("expected uplift error, got %v", err)
		}
	})
}

func TestScoreBatch(t *testing.T) {
	sr := &stubResonance{score: 0.5, subspaces: map[string]float64{
		subspaceInterests:     0.5,
		subspaceCommunication: 0.5,
	}}
	svc := New(testWeights(t), sr, &stubUplift{}, &stubGain{}, &stubSafety{}, 0)

	out, err := svc.ScoreBatch(context.Background(), []PairInput{testInput(), testInput()})
	if err != nil {
		t.Fatalf("ScoreBatch failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}

	sr.err = errors.New("boom")
	if _, err := svc.ScoreBatch(context.Background(), []PairInput{testInput()}); err == nil {
		t.Error("expected batch failure when a pair fails")
	}
}
