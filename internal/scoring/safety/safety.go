// Package safety evaluates the pairwise safety constraint penalty from red
// flags, geographic distance, and age preferences. Higher scores mean less
// safe; the combiner subtracts the score, weighted by delta.
package safety

import (
	"fmt"

	"github.com/kindred-labs/resonance/internal/domain/geo"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
)

// Penalty component weights.
const (
	flagWeight     = 0.6
	distanceWeight = 0.25
	ageWeight      = 0.15

	// agePreferencePenalty applies when either user's age bounds are violated.
	agePreferencePenalty = 0.8
	// gradedAgeFactor scales the penalty for an in-preference age gap.
	gradedAgeFactor = 0.4
	// gradedDistanceFactor scales the penalty for an in-preference distance.
	gradedDistanceFactor = 0.3
)

// Config holds the evaluator thresholds, injected at construction.
type Config struct {
	// DefaultMaxDistanceKm substitutes for an unset max-distance preference.
	DefaultMaxDistanceKm float64
	// SafeDistanceKm is the distance below which the graded penalty stays small.
	SafeDistanceKm float64
	// DefaultMaxAgeGap is the age gap treated as the graded penalty ceiling.
	DefaultMaxAgeGap int
}

// ApplyDefaults fills zero thresholds.
func (c *Config) ApplyDefaults() {
	if c.DefaultMaxDistanceKm <= 0 {
		c.DefaultMaxDistanceKm = 100
	}
	if c.SafeDistanceKm <= 0 {
		c.SafeDistanceKm = 50
	}
	if c.DefaultMaxAgeGap <= 0 {
		c.DefaultMaxAgeGap = 10
	}
}

// Flag is a structured record of one triggered safety condition.
type Flag struct {
	Type        string
	Severity    float64
	Description string
}

// Details is the evaluation breakdown.
type Details struct {
	Score           float64 // [0,1], higher = less safe
	Flags           []Flag
	FlagPenalty     float64
	DistancePenalty float64
	AgePenalty      float64
}

// Evaluator is a pure, stateless safety evaluator. It never errors: every
// input yields a valid bounded score.
type Evaluator struct {
	cfg Config
}

// New creates an evaluator with defaults applied.
func New(cfg Config) *Evaluator {
	cfg.ApplyDefaults()
	return &Evaluator{cfg: cfg}
}

// Calculate returns only the combined penalty score.
func (e *Evaluator) Calculate(a, b domsafety.Profile) float64 {
	return e.CalculateDetailed(a, b).Score
}

// CalculateDetailed combines red-flag, distance and age penalties with fixed
// weights. A critical flag on either user short-circuits to the maximum
// penalty regardless of other factors.
func (e *Evaluator) CalculateDetailed(a, b domsafety.Profile) Details {
	d := Details{}

	flagPenalty, critical := e.flagPenalty(a, b, &d)
	if critical {
		d.FlagPenalty = 1
		d.Score = 1
		return d
	}
	d.FlagPenalty = flagPenalty
	d.DistancePenalty = e.distancePenalty(a, b, &d)
	d.AgePenalty = e.agePenalty(a, b, &d)

	d.Score = rbs.Clamp(
		flagWeight*d.FlagPenalty +
			distanceWeight*d.DistancePenalty +
			ageWeight*d.AgePenalty)
	return d
}

// flagPenalty returns the maximum severity across both users' flags and
// whether any flag is critical.
func (e *Evaluator) flagPenalty(a, b domsafety.Profile, d *Details) (float64, bool) {
	var maxSeverity float64
	critical := false

	for _, p := range []domsafety.Profile{a, b} {
		for _, f := range p.RedFlags {
			sev, known := domsafety.Severity(f)
			desc := fmt.Sprintf("user %s flagged: %s", p.UserID, f)
			if !known {
				desc = fmt.Sprintf("user %s flagged (unknown flag, default severity): %s", p.UserID, f)
			}
			d.Flags = append(d.Flags, Flag{Type: string(f), Severity: sev, Description: desc})
			if sev > maxSeverity {
				maxSeverity = sev
			}
			if sev >= domsafety.CriticalSeverity {
				critical = true
			}
		}
	}
	return maxSeverity, critical
}

// distancePenalty applies the stricter of the two users' max-distance
// preferences. Beyond that limit the overage ratio becomes the severity;
// within it a graded penalty scales linearly up to the safe distance.
func (e *Evaluator) distancePenalty(a, b domsafety.Profile, d *Details) float64 {
	if !a.Location.Valid() || !b.Location.Valid() {
		d.Flags = append(d.Flags, Flag{
			Type:        "unknown_location",
			Severity:    0,
			Description: "distance not evaluated: missing or invalid coordinates",
		})
		return 0
	}

	dist := geo.HaversineKm(a.Location.Lat, a.Location.Lon, b.Location.Lat, b.Location.Lon)
	limit := e.stricterMaxDistance(a.Preferences, b.Preferences)

	if dist > limit {
		overage := rbs.Clamp((dist - limit) / limit)
		penalty := 0.5 + 0.5*overage
		d.Flags = append(d.Flags, Flag{
			Type:        "distance_exceeded",
			Severity:    penalty,
			Description: fmt.Sprintf("distance %.0fkm exceeds limit %.0fkm", dist, limit),
		})
		return penalty
	}

	graded := gradedDistanceFactor * rbs.Clamp(dist/e.cfg.SafeDistanceKm)
	if graded > 0 {
		d.Flags = append(d.Flags, Flag{
			Type:        "distance_graded",
			Severity:    graded,
			Description: fmt.Sprintf("distance %.0fkm within limit %.0fkm", dist, limit),
		})
	}
	return graded
}

func (e *Evaluator) stricterMaxDistance(a, b domsafety.Preferences) float64 {
	limit := e.cfg.DefaultMaxDistanceKm
	if a.MaxDistanceKm != nil && *a.MaxDistanceKm < limit {
		limit = *a.MaxDistanceKm
	}
	if b.MaxDistanceKm != nil && *b.MaxDistanceKm < limit {
		limit = *b.MaxDistanceKm
	}
	return limit
}

// agePenalty applies a fixed high penalty when either user's age preference
// is violated, otherwise a graded penalty relative to the safe age gap.
func (e *Evaluator) agePenalty(a, b domsafety.Profile, d *Details) float64 {
	if !a.Preferences.AcceptsAge(b.Age) || !b.Preferences.AcceptsAge(a.Age) {
		d.Flags = append(d.Flags, Flag{
			Type:        "age_preference_violated",
			Severity:    agePreferencePenalty,
			Description: fmt.Sprintf("ages %d and %d violate a configured age preference", a.Age, b.Age),
		})
		return agePreferencePenalty
	}

	gap := a.Age - b.Age
	if gap < 0 {
		gap = -gap
	}
	graded := gradedAgeFactor * rbs.Clamp(float64(gap)/float64(e.cfg.DefaultMaxAgeGap))
	if graded > 0 {
		d.Flags = append(d.Flags, Flag{
			Type:        "age_gap_graded",
			Severity:    graded,
			Description: fmt.Sprintf("age gap of %d years", gap),
		})
	}
	return graded
}
