// Package lifecycle handles match status transitions: user decisions on
// pending matches and the sweep that expires stale ones.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/match"
	"github.com/kindred-labs/resonance/internal/logger"
	"github.com/kindred-labs/resonance/internal/metrics"
)

// Decision is a user's response to a pending match.
type Decision string

const (
	// DecisionAccept accepts the match.
	DecisionAccept Decision = "accept"
	// DecisionReject rejects the match.
	DecisionReject Decision = "reject"
)

// Response is the outcome of a decision. Mutual is set when both
// directions of the pair are now accepted.
type Response struct {
	Match  *match.Match
	Mutual bool
}

// Service applies match lifecycle transitions.
type Service struct {
	matches MatchStore
	now     func() time.Time
}

// New creates a lifecycle service.
func New(matches MatchStore) *Service {
	return &Service{matches: matches, now: time.Now}
}

// Respond applies a user decision to a pending match. The status machine
// rejects decisions on non-pending matches. An expired-but-unswept match
// is expired in place instead of accepting the decision.
func (s *Service) Respond(ctx context.Context, matchID string, d Decision) (Response, error) {
	var next match.Status
	switch d {
	case DecisionAccept:
		next = match.StatusAccepted
	case DecisionReject:
		next = match.StatusRejected
	default:
		return Response{}, fmt.Errorf("%w: unknown decision %q", domain.ErrInvalidTransition, d)
	}

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return Response{}, err
	}

	now := s.now()
	if m.Expirable(now) {
		if err := s.expire(ctx, m, now); err != nil {
			return Response{}, err
		}
		return Response{}, fmt.Errorf("match %s: %w: pending -> %s on expired match",
			matchID, domain.ErrInvalidTransition, next)
	}

	if err := m.Transition(next, now); err != nil {
		return Response{}, fmt.Errorf("match %s: %w", matchID, err)
	}
	if err := s.matches.Save(ctx, m); err != nil {
		return Response{}, err
	}

	resp := Response{Match: m}
	if next == match.StatusAccepted {
		resp.Mutual, err = s.isMutual(ctx, m)
		if err != nil {
			return Response{}, err
		}
	}
	return resp, nil
}

// isMutual checks whether the reverse direction is also accepted.
// A missing reverse record simply means not mutual yet.
func (s *Service) isMutual(ctx context.Context, m *match.Match) (bool, error) {
	reverse, err := s.matches.FindPair(ctx, m.MatchedUserID, m.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check reverse pair: %w", err)
	}
	return reverse.Status == match.StatusAccepted, nil
}

// SweepExpired moves every pending match past its expiry to expired.
// Returns the number of matches expired.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	pending, err := s.matches.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	now := s.now()
	expired := 0
	for _, m := range pending {
		if !m.Expirable(now) {
			continue
		}
		if err := s.expire(ctx, m, now); err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		logger.FromContext(ctx).Info("expiry sweep complete",
			zap.Int("pending", len(pending)), zap.Int("expired", expired))
	}
	return expired, nil
}

func (s *Service) expire(ctx context.Context, m *match.Match, now time.Time) error {
	if err := m.Transition(match.StatusExpired, now); err != nil {
		return fmt.Errorf("expire match %s: %w", m.ID, err)
	}
	if err := s.matches.Save(ctx, m); err != nil {
		return fmt.Errorf("expire match %s: %w", m.ID, err)
	}
	metrics.MatchesExpiredTotal.Inc()
	return nil
}
