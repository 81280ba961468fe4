package uplift

import (
	"errors"
	"math"
	"testing"

	"github.com/kindred-labs/resonance/internal/domain"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(
		[]float64{1.2, 0.8, 0.5, -0.3},
		[]float64{0.9, 0.6, 0.4, -0.2},
		"test-v1",
	)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	return m
}

func TestNewModel_Invalid(t *testing.T) {
	tests := []struct {
		name               string
		treatment, control []float64
	}{
		{"empty treatment", nil, []float64{1}},
		{"length mismatch", []float64{1, 2}, []float64{1}},
		{"nan treatment", []float64{math.NaN()}, []float64{1}},
		{"inf control", []float64{1}, []float64{math.Inf(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewModel(tt.treatment, tt.control, "v"); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestPredict_Deterministic(t *testing.T) {
	m := testModel(t)
	features := []float64{0.5, 0.3, 0.8, 0.2}

	first, err := m.Predict(features)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := m.Predict(features)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestPredict_EffectValue(t *testing.T) {
	m := testModel(t)
	features := []float64{0.5, 0.3, 0.8, 0.2}

	p, err := m.Predict(features)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	dot := func(w []float64) float64 {
		var s float64
		for i := range w {
			s += w[i] * features[i]
		}
		return s
	}
	sig := func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	want := sig(dot([]float64{1.2, 0.8, 0.5, -0.3})) - sig(dot([]float64{0.9, 0.6, 0.4, -0.2}))

	if math.Abs(p.TreatmentEffect-want) > 1e-12 {
		t.Errorf("TreatmentEffect = %v, want %v", p.TreatmentEffect, want)
	}
	if p.ModelVersion != "test-v1" {
		t.Errorf("ModelVersion = %q", p.ModelVersion)
	}
}

func TestPredict_NegativeEffectClampsToZero(t *testing.T) {
	// control dominates treatment: raw effect is negative
	m, err := NewModel([]float64{0.1}, []float64{2.0}, "v")
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	p, err := m.Predict([]float64{1})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if p.TreatmentEffect != 0 {
		t.Errorf("TreatmentEffect = %v, want 0", p.TreatmentEffect)
	}
}

func TestPredict_FitsFeatureWidth(t *testing.T) {
	m := testModel(t)

	short, err := m.Predict([]float64{0.5, 0.3})
	if err != nil {
		t.Fatalf("Predict short failed: %v", err)
	}
	padded, err := m.Predict([]float64{0.5, 0.3, 0, 0})
	if err != nil {
		t.Fatalf("Predict padded failed: %v", err)
	}
	if short.TreatmentEffect != padded.TreatmentEffect {
		t.Errorf("short %v != zero padded %v", short.TreatmentEffect, padded.TreatmentEffect)
	}

	long, err := m.Predict([]float64{0.5, 0.3, 0.8, 0.2, 99, -99})
	if err != nil {
		t.Fatalf("Predict long failed: %v", err)
	}
	exact, err := m.Predict([]float64{0.5, 0.3, 0.8, 0.2})
	if err != nil {
		t.Fatalf("Predict exact failed: %v", err)
	}
	if long.TreatmentEffect != exact.TreatmentEffect {
		t.Errorf("truncated %v != exact %v", long.TreatmentEffect, exact.TreatmentEffect)
	}
}

func TestPredict_NonFiniteFeatureFails(t *testing.T) {
	m := testModel(t)
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := m.Predict([]float64{0.5, bad, 0.1, 0.1})
		if !errors.Is(err, domain.ErrNonFiniteInput) {
			t.Errorf("expected ErrNonFiniteInput for %v, got %v", bad, err)
		}
	}
}

func TestPredict_ConfidenceBounds(t *testing.T) {
	m := testModel(t)

	dense, err := m.Predict([]float64{0.9, -0.7, 0.5, 0.3})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	sparse, err := m.Predict([]float64{0.9, 0, 0, 0})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	for _, p := range []Prediction{dense, sparse} {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("confidence %v outside [0,1]", p.Confidence)
		}
	}
	if sparse.Confidence >= dense.Confidence {
		t.Errorf("sparse confidence %v should be below dense %v", sparse.Confidence, dense.Confidence)
	}
}
