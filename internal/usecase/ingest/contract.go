package ingest

import (
	"context"

	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
)

// ProfileStore persists trait and safety profiles.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p *profile.Profile) error
	LoadProfile(ctx context.Context, userID string) (*profile.Profile, error)
	SaveSafetyProfile(ctx context.Context, sp domsafety.Profile) error
}

// VectorStore persists user embeddings.
type VectorStore interface {
	Upsert(ctx context.Context, userID string, vec []float32) error
}
