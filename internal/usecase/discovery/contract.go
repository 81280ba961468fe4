package discovery

import (
	"context"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/match"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/usecase/score"
)

// VectorSearch provides embedding lookup and k-NN candidate retrieval.
type VectorSearch interface {
	GetVector(ctx context.Context, userID string) ([]float32, error)
	Search(ctx context.Context, query []float32, limit int, excludeID string) ([]domain.Candidate, error)
}

// ProfileStore reads trait and safety profiles.
type ProfileStore interface {
	LoadProfile(ctx context.Context, userID string) (*profile.Profile, error)
	LoadSafetyProfile(ctx context.Context, userID string) (domsafety.Profile, error)
}

// MatchStore persists match records.
type MatchStore interface {
	FindPair(ctx context.Context, userID, matchedID string) (*match.Match, error)
	CreateIfAbsent(ctx context.Context, m *match.Match) error
}

// Scorer computes the combined resonance score for one pair.
type Scorer interface {
	Score(ctx context.Context, in score.PairInput) (score.Result, error)
}
