package profiles

import (
	"fmt"

	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
)

type traitDoc struct {
	Dimension  string  `json:"dimension"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

type profileDoc struct {
	Traits []traitDoc `json:"traits"`
}

func profileToDoc(p *profile.Profile) profileDoc {
	traits := p.Traits()
	doc := profileDoc{Traits: make([]traitDoc, 0, len(traits))}
	for _, t := range traits {
		doc.Traits = append(doc.Traits, traitDoc{
			Dimension:  string(t.Dimension),
			Name:       t.Name,
			Value:      t.Value,
			Confidence: t.Confidence,
			Source:     t.Source,
		})
	}
	return doc
}

func docToProfile(userID string, doc profileDoc) (*profile.Profile, error) {
	traits := make([]profile.Trait, 0, len(doc.Traits))
	for _, t := range doc.Traits {
		traits = append(traits, profile.Trait{
			Dimension:  profile.Dimension(t.Dimension),
			Name:       t.Name,
			Value:      t.Value,
			Confidence: t.Confidence,
			Source:     t.Source,
		})
	}
	p, err := profile.Reconstruct(userID, traits)
	if err != nil {
		return nil, fmt.Errorf("stored profile invalid: %w", err)
	}
	return p, nil
}

type preferencesDoc struct {
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty"`
	MinAge        *int     `json:"min_age,omitempty"`
	MaxAge        *int     `json:"max_age,omitempty"`
}

type safetyDoc struct {
	Age         int            `json:"age"`
	Lat         float64        `json:"lat"`
	Lon         float64        `json:"lon"`
	RedFlags    []string       `json:"red_flags,omitempty"`
	Preferences preferencesDoc `json:"preferences"`
}

func safetyToDoc(sp domsafety.Profile) safetyDoc {
	doc := safetyDoc{
		Age: sp.Age,
		Lat: sp.Location.Lat,
		Lon: sp.Location.Lon,
		Preferences: preferencesDoc{
			MaxDistanceKm: sp.Preferences.MaxDistanceKm,
			MinAge:        sp.Preferences.MinAge,
			MaxAge:        sp.Preferences.MaxAge,
		},
	}
	for _, f := range sp.RedFlags {
		doc.RedFlags = append(doc.RedFlags, string(f))
	}
	return doc
}

func docToSafety(userID string, doc safetyDoc) domsafety.Profile {
	sp := domsafety.Profile{
		UserID:   userID,
		Age:      doc.Age,
		Location: domsafety.Coordinates{Lat: doc.Lat, Lon: doc.Lon},
		Preferences: domsafety.Preferences{
			MaxDistanceKm: doc.Preferences.MaxDistanceKm,
			MinAge:        doc.Preferences.MinAge,
			MaxAge:        doc.Preferences.MaxAge,
		},
	}
	for _, f := range doc.RedFlags {
		sp.RedFlags = append(sp.RedFlags, domsafety.RedFlag(f))
	}
	return sp
}
