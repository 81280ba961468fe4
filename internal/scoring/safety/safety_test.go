package safety

import (
	"math"
	"testing"

	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
)

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

func cleanProfile(id string) domsafety.Profile {
	return domsafety.Profile{
		UserID:   id,
		Age:      30,
		Location: domsafety.Coordinates{Lat: 52.52, Lon: 13.405},
	}
}

func TestCalculateDetailed_CleanPair(t *testing.T) {
	e := New(Config{})
	d := e.CalculateDetailed(cleanProfile("u1"), cleanProfile("u2"))

	if d.Score != 0 {
		t.Errorf("clean pair score = %v, want 0", d.Score)
	}
	if len(d.Flags) != 0 {
		t.Errorf("clean pair flags = %+v, want none", d.Flags)
	}
}

func TestCalculateDetailed_CriticalFlagShortCircuits(t *testing.T) {
	e := New(Config{})

	for _, critical := range []domsafety.RedFlag{
		domsafety.FlagHarassmentHistory,
		domsafety.FlagViolenceHistory,
	} {
		a := cleanProfile("u1")
		a.RedFlags = []domsafety.RedFlag{critical}
		d := e.CalculateDetailed(a, cleanProfile("u2"))

		if d.Score != 1 {
			t.Errorf("%s: score = %v, want 1", critical, d.Score)
		}
		if d.FlagPenalty != 1 {
			t.Errorf("%s: FlagPenalty = %v, want 1", critical, d.FlagPenalty)
		}
		// short circuit: distance and age are not evaluated
		if d.DistancePenalty != 0 || d.AgePenalty != 0 {
			t.Errorf("%s: expected other penalties unset, got %+v", critical, d)
		}
	}
}

func TestCalculateDetailed_NonCriticalFlagWeighted(t *testing.T) {
	e := New(Config{})
	a := cleanProfile("u1")
	a.RedFlags = []domsafety.RedFlag{domsafety.FlagGhostingPattern}

	d := e.CalculateDetailed(a, cleanProfile("u2"))
	if d.FlagPenalty != 0.3 {
		t.Errorf("FlagPenalty = %v, want 0.3", d.FlagPenalty)
	}
	want := flagWeight * 0.3
	if math.Abs(d.Score-want) > 1e-12 {
		t.Errorf("score = %v, want %v", d.Score, want)
	}
}

func TestCalculateDetailed_UnknownFlagDefaultSeverity(t *testing.T) {
	e := New(Config{})
	a := cleanProfile("u1")
	a.RedFlags = []domsafety.RedFlag{"made_up_flag"}

	d := e.CalculateDetailed(a, cleanProfile("u2"))
	if d.FlagPenalty != domsafety.UnknownFlagSeverity {
		t.Errorf("FlagPenalty = %v, want %v", d.FlagPenalty, domsafety.UnknownFlagSeverity)
	}
	if d.Score == 1 {
		t.Error("unknown flag must not short-circuit")
	}
}

func TestCalculateDetailed_DistanceExceeded(t *testing.T) {
	e := New(Config{DefaultMaxDistanceKm: 100})

	a := cleanProfile("u1") // Berlin
	b := cleanProfile("u2")
	b.Location = domsafety.Coordinates{Lat: 53.551, Lon: 9.994} // Hamburg, ~255km

	d := e.CalculateDetailed(a, b)
	if d.DistancePenalty < 0.5 {
		t.Errorf("DistancePenalty = %v, want >= 0.5 for exceeded limit", d.DistancePenalty)
	}
	if !hasFlag(d.Flags, "distance_exceeded") {
		t.Errorf("expected distance_exceeded flag, got %+v", d.Flags)
	}
	want := distanceWeight * d.DistancePenalty
	if math.Abs(d.Score-want) > 1e-12 {
		t.Errorf("score = %v, want %v", d.Score, want)
	}
}

func TestCalculateDetailed_DistanceGraded(t *testing.T) {
	e := New(Config{DefaultMaxDistanceKm: 100, SafeDistanceKm: 50})

	a := cleanProfile("u1")
	b := cleanProfile("u2")
	b.Location = domsafety.Coordinates{Lat: 52.52, Lon: 13.84} // ~30km east

	d := e.CalculateDetailed(a, b)
	if d.DistancePenalty <= 0 || d.DistancePenalty > gradedDistanceFactor {
		t.Errorf("graded DistancePenalty = %v, want in (0, %v]", d.DistancePenalty, gradedDistanceFactor)
	}
	if !hasFlag(d.Flags, "distance_graded") {
		t.Errorf("expected distance_graded flag, got %+v", d.Flags)
	}
}

func TestCalculateDetailed_StricterMaxDistanceWins(t *testing.T) {
	e := New(Config{DefaultMaxDistanceKm: 100})

	a := cleanProfile("u1")
	a.Preferences.MaxDistanceKm = fptr(10)
	b := cleanProfile("u2")
	b.Location = domsafety.Coordinates{Lat: 52.52, Lon: 13.84} // ~30km, under default

	d := e.CalculateDetailed(a, b)
	if !hasFlag(d.Flags, "distance_exceeded") {
		t.Errorf("10km preference should override default limit, got %+v", d.Flags)
	}
}

func TestCalculateDetailed_InvalidLocationSkipsDistance(t *testing.T) {
	e := New(Config{})
	a := cleanProfile("u1")
	a.Location = domsafety.Coordinates{Lat: 999, Lon: 0}

	d := e.CalculateDetailed(a, cleanProfile("u2"))
	if d.DistancePenalty != 0 {
		t.Errorf("DistancePenalty = %v, want 0 for invalid coordinates", d.DistancePenalty)
	}
	if !hasFlag(d.Flags, "unknown_location") {
		t.Errorf("expected unknown_location flag, got %+v", d.Flags)
	}
}

func TestCalculateDetailed_AgePreferenceViolated(t *testing.T) {
	e := New(Config{})

	a := cleanProfile("u1")
	a.Age = 25
	b := cleanProfile("u2")
	b.Age = 40
	b.Preferences.MinAge = iptr(35)

	d := e.CalculateDetailed(a, b)
	if d.AgePenalty != agePreferencePenalty {
		t.Errorf("AgePenalty = %v, want %v", d.AgePenalty, agePreferencePenalty)
	}
	if !hasFlag(d.Flags, "age_preference_violated") {
		t.Errorf("expected age_preference_violated flag, got %+v", d.Flags)
	}
}

func TestCalculateDetailed_AgeGapGraded(t *testing.T) {
	e := New(Config{DefaultMaxAgeGap: 10})

	a := cleanProfile("u1")
	a.Age = 30
	b := cleanProfile("u2")
	b.Age = 35

	d := e.CalculateDetailed(a, b)
	want := gradedAgeFactor * 0.5
	if math.Abs(d.AgePenalty-want) > 1e-12 {
		t.Errorf("AgePenalty = %v, want %v", d.AgePenalty, want)
	}
	if !hasFlag(d.Flags, "age_gap_graded") {
		t.Errorf("expected age_gap_graded flag, got %+v", d.Flags)
	}
}

func TestCalculateDetailed_Symmetric(t *testing.T) {
	e := New(Config{})

	a := cleanProfile("u1")
	a.Age = 28
	a.RedFlags = []domsafety.RedFlag{domsafety.FlagSpamBehavior}
	b := cleanProfile("u2")
	b.Age = 36
	b.Location = domsafety.Coordinates{Lat: 53.551, Lon: 9.994}

	if e.Calculate(a, b) != e.Calculate(b, a) {
		t.Errorf("safety score must be symmetric: %v vs %v", e.Calculate(a, b), e.Calculate(b, a))
	}
}

func hasFlag(flags []Flag, typ string) bool {
	for _, f := range flags {
		if f.Type == typ {
			return true
		}
	}
	return false
}
