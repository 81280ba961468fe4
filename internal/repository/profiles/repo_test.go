package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/kindred-labs/resonance/internal/db"
	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
)

// --- Mocks ---

type fakeJSONStore struct {
	docs map[string][]byte
}

func newFakeJSONStore() *fakeJSONStore {
	return &fakeJSONStore{docs: make(map[string][]byte)}
}

func (f *fakeJSONStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	f.docs[key] = data
	return nil
}

func (f *fakeJSONStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	v, ok := f.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// --- Tests ---

func TestProfileRoundTrip(t *testing.T) {
	repo := New(newFakeJSONStore(), "rbs:")
	ctx := context.Background()

	p := profile.New("u1")
	for _, tr := range []profile.Trait{
		{Dimension: profile.Personality, Name: "openness", Value: 0.9, Confidence: 0.8, Source: "quiz"},
		{Dimension: profile.Interests, Name: "hiking", Value: 0.7, Confidence: 0.6},
	} {
		if err := p.Add(tr); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	if err := repo.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	got, err := repo.LoadProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if got.UserID() != "u1" || got.TraitCount() != 2 {
		t.Errorf("round trip mismatch: %s, %d traits", got.UserID(), got.TraitCount())
	}
	if !got.Has(profile.Personality, "openness") || !got.Has(profile.Interests, "hiking") {
		t.Errorf("traits lost in round trip: %+v", got.Traits())
	}
	if tr := got.Traits()[0]; tr.Source != "quiz" {
		t.Errorf("Source = %q, want quiz", tr.Source)
	}
}

func TestLoadProfile_NotFound(t *testing.T) {
	repo := New(newFakeJSONStore(), "rbs:")

	_, err := repo.LoadProfile(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSafetyProfileRoundTrip(t *testing.T) {
	repo := New(newFakeJSONStore(), "rbs:")
	ctx := context.Background()

	maxDist := 25.0
	minAge := 28
	sp := domsafety.Profile{
		UserID:   "u1",
		Age:      31,
		Location: domsafety.Coordinates{Lat: 52.52, Lon: 13.405},
		RedFlags: []domsafety.RedFlag{domsafety.FlagGhostingPattern},
		Preferences: domsafety.Preferences{
			MaxDistanceKm: &maxDist,
			MinAge:        &minAge,
		},
	}

	if err := repo.SaveSafetyProfile(ctx, sp); err != nil {
		t.Fatalf("SaveSafetyProfile failed: %v", err)
	}

	got, err := repo.LoadSafetyProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadSafetyProfile failed: %v", err)
	}
	if got.Age != 31 || got.Location.Lat != 52.52 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.RedFlags) != 1 || got.RedFlags[0] != domsafety.FlagGhostingPattern {
		t.Errorf("red flags = %v", got.RedFlags)
	}
	if got.Preferences.MaxDistanceKm == nil || *got.Preferences.MaxDistanceKm != 25.0 {
		t.Errorf("MaxDistanceKm = %v", got.Preferences.MaxDistanceKm)
	}
	if got.Preferences.MaxAge != nil {
		t.Error("unset MaxAge must stay nil")
	}
}

func TestLoadSafetyProfile_NotFound(t *testing.T) {
	repo := New(newFakeJSONStore(), "rbs:")

	_, err := repo.LoadSafetyProfile(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
