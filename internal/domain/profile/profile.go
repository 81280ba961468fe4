// Package profile models the five-dimension trait profile that information
// gain scoring and uplift feature extraction consume.
package profile

import (
	"fmt"
	"sort"

	"github.com/kindred-labs/resonance/internal/domain"
)

// Dimension is one of the five fixed trait categories.
type Dimension string

const (
	// Personality covers temperament traits.
	Personality Dimension = "personality"
	// Values covers beliefs and priorities.
	Values Dimension = "values"
	// Interests covers hobbies and activities.
	Interests Dimension = "interests"
	// Communication covers interaction style.
	Communication Dimension = "communication"
	// Lifestyle covers daily habits and living situation.
	Lifestyle Dimension = "lifestyle"
)

// Dimensions returns the closed set of trait dimensions in canonical order.
func Dimensions() [5]Dimension {
	return [5]Dimension{Personality, Values, Interests, Communication, Lifestyle}
}

// ValidDimension reports whether d belongs to the closed dimension set.
func ValidDimension(d Dimension) bool {
	switch d {
	case Personality, Values, Interests, Communication, Lifestyle:
		return true
	}
	return false
}

// Trait is a single observed attribute of a user, keyed by (dimension, name).
type Trait struct {
	Dimension  Dimension
	Name       string
	Value      float64 // [0,1]
	Confidence float64 // [0,1]
	Source     string
}

// Validate checks the trait shape.
func (t Trait) Validate() error {
	if !ValidDimension(t.Dimension) {
		return fmt.Errorf("%w: unknown dimension %q", domain.ErrInvalidTrait, t.Dimension)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", domain.ErrInvalidTrait)
	}
	if t.Value < 0 || t.Value > 1 {
		return fmt.Errorf("%w: value %.3f outside [0,1]", domain.ErrInvalidTrait, t.Value)
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0,1]", domain.ErrInvalidTrait, t.Confidence)
	}
	return nil
}

// Profile is a user's trait collection grouped by dimension.
// Trait names are unique within a dimension.
type Profile struct {
	userID string
	traits map[Dimension]map[string]Trait
}

// New creates an empty profile for a user.
func New(userID string) *Profile {
	return &Profile{userID: userID, traits: make(map[Dimension]map[string]Trait)}
}

// Reconstruct rebuilds a profile from stored traits, skipping nothing:
// invalid traits fail, the store is expected to hold only validated data.
func Reconstruct(userID string, traits []Trait) (*Profile, error) {
	p := New(userID)
	for _, t := range traits {
		if err := p.Add(t); err != nil {
			return nil, fmt.Errorf("reconstruct profile %s: %w", userID, err)
		}
	}
	return p, nil
}

// UserID returns the profile owner.
func (p *Profile) UserID() string { return p.userID }

// Add validates and inserts a trait, replacing any previous trait with the
// same (dimension, name) key.
func (p *Profile) Add(t Trait) error {
	if err := t.Validate(); err != nil {
		return err
	}
	dim := p.traits[t.Dimension]
	if dim == nil {
		dim = make(map[string]Trait)
		p.traits[t.Dimension] = dim
	}
	dim[t.Name] = t
	return nil
}

// Has reports whether a trait with the given key exists.
func (p *Profile) Has(d Dimension, name string) bool {
	_, ok := p.traits[d][name]
	return ok
}

// TraitCount returns the total number of traits across all dimensions.
func (p *Profile) TraitCount() int {
	n := 0
	for _, dim := range p.traits {
		n += len(dim)
	}
	return n
}

// DimensionCount returns the number of traits in one dimension.
func (p *Profile) DimensionCount(d Dimension) int { return len(p.traits[d]) }

// Traits returns all traits sorted by dimension then name, for deterministic iteration.
func (p *Profile) Traits() []Trait {
	out := make([]Trait, 0, p.TraitCount())
	for _, d := range Dimensions() {
		names := make([]string, 0, len(p.traits[d]))
		for name := range p.traits[d] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, p.traits[d][name])
		}
	}
	return out
}

// ConfidenceSum returns the sum of confidence over all traits.
func (p *Profile) ConfidenceSum() float64 {
	var sum float64
	for _, dim := range p.traits {
		for _, t := range dim {
			sum += t.Confidence
		}
	}
	return sum
}

// AvgConfidence returns the mean trait confidence, 0 for an empty profile.
func (p *Profile) AvgConfidence() float64 {
	n := p.TraitCount()
	if n == 0 {
		return 0
	}
	return p.ConfidenceSum() / float64(n)
}

// Completeness returns a [0,100] completeness score derived from trait counts,
// assuming minPerDimension traits per dimension make a dimension complete.
func (p *Profile) Completeness(minPerDimension int) float64 {
	if minPerDimension <= 0 {
		return 0
	}
	expected := float64(len(Dimensions()) * minPerDimension)
	got := float64(p.TraitCount())
	if got > expected {
		got = expected
	}
	return got / expected * 100
}
