package infogain

import (
	"math"
	"testing"

	"github.com/kindred-labs/resonance/internal/domain/profile"
)

func addTrait(t *testing.T, p *profile.Profile, d profile.Dimension, name string, conf float64) {
	t.Helper()
	if err := p.Add(profile.Trait{Dimension: d, Name: name, Value: 0.5, Confidence: conf}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
}

func TestCalculateDetailed_EmptyProfile(t *testing.T) {
	s := New(3)
	d := s.CalculateDetailed(profile.New("u1"))

	if d.Score != 0 {
		t.Errorf("empty profile score = %v, want 0", d.Score)
	}
	if d.Coverage != 0 || d.AvgConfidence != 0 || d.EntropyReduction != 0 {
		t.Errorf("empty profile details = %+v, want all zero", d)
	}
}

func TestCalculateDetailed_FullProfile(t *testing.T) {
	s := New(3)
	p := profile.New("u1")
	for _, d := range profile.Dimensions() {
		for _, name := range []string{"a", "b", "c"} {
			addTrait(t, p, d, name, 1.0)
		}
	}

	got := s.CalculateDetailed(p)
	if got.Coverage != 1 {
		t.Errorf("Coverage = %v, want 1", got.Coverage)
	}
	if math.Abs(got.EntropyReduction-1) > 1e-12 {
		t.Errorf("EntropyReduction = %v, want 1", got.EntropyReduction)
	}
	// base 1.0 with full entropy bonus clamps back to 1
	if got.Score != 1 {
		t.Errorf("Score = %v, want 1", got.Score)
	}
}

func TestCalculateDetailed_MonotoneUnderTraitAddition(t *testing.T) {
	s := New(3)
	p := profile.New("u1")
	addTrait(t, p, profile.Personality, "openness", 0.9)
	addTrait(t, p, profile.Values, "honesty", 0.9)
	addTrait(t, p, profile.Interests, "hiking", 0.9)

	before := s.CalculateDetailed(p).Score

	// a low-confidence trait drags the mean down but must not drop the score
	addTrait(t, p, profile.Lifestyle, "early_riser", 0.05)
	after := s.CalculateDetailed(p)

	if after.Score < before {
		t.Errorf("score dropped from %v to %v after adding a trait", before, after.Score)
	}
	if after.AvgConfidence >= 0.9 {
		t.Errorf("AvgConfidence = %v, expected it to reflect the low-confidence trait", after.AvgConfidence)
	}
}

func TestCalculateDetailed_SpreadBeatsConcentration(t *testing.T) {
	s := New(3)

	spread := profile.New("u1")
	for i, d := range profile.Dimensions() {
		addTrait(t, spread, d, []string{"a", "b", "c", "d", "e"}[i], 0.7)
	}

	concentrated := profile.New("u2")
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		addTrait(t, concentrated, profile.Personality, name, 0.7)
	}

	ds, dc := s.CalculateDetailed(spread), s.CalculateDetailed(concentrated)
	if ds.Coverage != dc.Coverage {
		t.Fatalf("coverage should match: %v vs %v", ds.Coverage, dc.Coverage)
	}
	if ds.Score <= dc.Score {
		t.Errorf("spread score %v should beat concentrated %v", ds.Score, dc.Score)
	}
	if dc.EntropyReduction != 0 {
		t.Errorf("single-dimension entropy = %v, want 0", dc.EntropyReduction)
	}
}

func TestCalculate_PairMean(t *testing.T) {
	s := New(3)

	a := profile.New("u1")
	addTrait(t, a, profile.Personality, "openness", 0.8)
	b := profile.New("u2")
	for _, d := range profile.Dimensions() {
		addTrait(t, b, d, "x", 0.8)
	}

	want := (s.CalculateDetailed(a).Score + s.CalculateDetailed(b).Score) / 2
	if got := s.Calculate(a, b); math.Abs(got-want) > 1e-12 {
		t.Errorf("Calculate = %v, want mean %v", got, want)
	}
	if math.Abs(s.Calculate(a, b)-s.Calculate(b, a)) > 1e-12 {
		t.Error("pair score must be symmetric")
	}
}

func TestTraitsNeeded(t *testing.T) {
	s := New(3)

	full := profile.New("u1")
	for _, d := range profile.Dimensions() {
		for _, name := range []string{"a", "b", "c"} {
			addTrait(t, full, d, name, 1.0)
		}
	}
	if got := s.TraitsNeeded(full, 0.9); got != 0 {
		t.Errorf("TraitsNeeded on met target = %d, want 0", got)
	}

	empty := profile.New("u2")
	got := s.TraitsNeeded(empty, 0.5)
	if got <= 0 {
		t.Errorf("TraitsNeeded from empty = %d, want positive", got)
	}
	if got > traitsNeededCap {
		t.Errorf("TraitsNeeded = %d exceeds cap", got)
	}

	if got := s.TraitsNeeded(empty, 2.0); got != traitsNeededCap {
		t.Errorf("unreachable target = %d, want cap %d", got, traitsNeededCap)
	}
}

func TestNew_DefaultMinTraits(t *testing.T) {
	s := New(0)
	if s.minTraits != DefaultMinTraitsPerDimension {
		t.Errorf("minTraits = %d, want default %d", s.minTraits, DefaultMinTraitsPerDimension)
	}
}
