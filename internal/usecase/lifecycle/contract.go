package lifecycle

import (
	"context"

	"github.com/kindred-labs/resonance/internal/domain/match"
)

// MatchStore reads and updates match records.
type MatchStore interface {
	Get(ctx context.Context, matchID string) (*match.Match, error)
	FindPair(ctx context.Context, userID, matchedID string) (*match.Match, error)
	Save(ctx context.Context, m *match.Match) error
	ListPending(ctx context.Context) ([]*match.Match, error)
}
