package matches

import (
	"time"

	"github.com/kindred-labs/resonance/internal/domain/match"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
)

type scoreDoc struct {
	SR         float64   `json:"sr"`
	CU         float64   `json:"cu"`
	IG         float64   `json:"ig"`
	SC         float64   `json:"sc"`
	Total      float64   `json:"total"`
	ComputedAt time.Time `json:"computed_at"`
}

type matchDoc struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	MatchedUserID string     `json:"matched_user_id"`
	Score         scoreDoc   `json:"score"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
}

func matchToDoc(m *match.Match) matchDoc {
	return matchDoc{
		ID:            m.ID,
		UserID:        m.UserID,
		MatchedUserID: m.MatchedUserID,
		Score: scoreDoc{
			SR:         m.Score.SR,
			CU:         m.Score.CU,
			IG:         m.Score.IG,
			SC:         m.Score.SC,
			Total:      m.Score.Total,
			ComputedAt: m.Score.ComputedAt,
		},
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
		ViewedAt:    m.ViewedAt,
		RespondedAt: m.RespondedAt,
	}
}

func docToMatch(doc matchDoc) *match.Match {
	return &match.Match{
		ID:            doc.ID,
		UserID:        doc.UserID,
		MatchedUserID: doc.MatchedUserID,
		Score: rbs.Score{
			Components: rbs.Components{
				SR: doc.Score.SR,
				CU: doc.Score.CU,
				IG: doc.Score.IG,
				SC: doc.Score.SC,
			},
			Total:      doc.Score.Total,
			ComputedAt: doc.Score.ComputedAt,
		},
		Status:      match.Status(doc.Status),
		CreatedAt:   doc.CreatedAt,
		ExpiresAt:   doc.ExpiresAt,
		ViewedAt:    doc.ViewedAt,
		RespondedAt: doc.RespondedAt,
	}
}
