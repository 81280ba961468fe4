// Package match models persisted match records and their status lifecycle.
package match

import (
	"fmt"
	"time"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
)

// Status is the lifecycle state of a match.
type Status string

const (
	// StatusPending awaits a user decision.
	StatusPending Status = "pending"
	// StatusAccepted means the owning user accepted the match.
	StatusAccepted Status = "accepted"
	// StatusRejected means the owning user rejected the match.
	StatusRejected Status = "rejected"
	// StatusExpired means the match passed its expiry while still pending.
	StatusExpired Status = "expired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows s -> next.
// Only pending matches move; accepted, rejected and expired are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusPending {
		return false
	}
	switch next {
	case StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Match is one directional match record from UserID toward MatchedUserID.
// A mutual match is two rows, one per direction, both accepted.
// Scores are frozen at discovery time and never recomputed in place.
type Match struct {
	ID            string
	UserID        string
	MatchedUserID string
	Score         rbs.Score
	Status        Status
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ViewedAt      *time.Time
	RespondedAt   *time.Time
}

// PairKey returns the directional storage key component for (userID, matchedID).
func PairKey(userID, matchedID string) string {
	return userID + ":" + matchedID
}

// Transition applies a guarded status change, stamping RespondedAt for
// user decisions. Expiry is a sweep action and leaves RespondedAt unset.
func (m *Match) Transition(next Status, now time.Time) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, next)
	}
	if !m.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, m.Status, next)
	}
	m.Status = next
	if next == StatusAccepted || next == StatusRejected {
		t := now
		m.RespondedAt = &t
	}
	return nil
}

// Expirable reports whether the match should be expired by a sweep at the given time.
func (m *Match) Expirable(now time.Time) bool {
	return m.Status == StatusPending && now.After(m.ExpiresAt)
}
