// Package matches persists match records keyed by user pair, with a
// secondary match-id key for lookups by ID. Pair creation uses SET NX so
// a pair is only ever written once regardless of how many discovery runs
// race over it.
package matches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kindred-labs/resonance/internal/db"
	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/match"
)

// store is the consumer interface for match persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements match storage.
type Repo struct {
	store  store
	prefix string
}

// New creates a match repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) pairKey(userID, matchedID string) string {
	return r.prefix + "match:" + match.PairKey(userID, matchedID)
}

func (r *Repo) idKey(matchID string) string {
	return r.prefix + "matchid:" + matchID
}

// FindPair loads the match record for the (userID, matchedID) direction.
// Absence maps to domain.ErrMatchNotFound.
func (r *Repo) FindPair(ctx context.Context, userID, matchedID string) (*match.Match, error) {
	data, err := r.store.Get(ctx, r.pairKey(userID, matchedID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("pair %s: %w", match.PairKey(userID, matchedID), domain.ErrMatchNotFound)
		}
		return nil, fmt.Errorf("find pair: %w", err)
	}
	return unmarshalMatch(data)
}

// Get loads a match by its ID. Absence maps to domain.ErrMatchNotFound.
func (r *Repo) Get(ctx context.Context, matchID string) (*match.Match, error) {
	pair, err := r.store.Get(ctx, r.idKey(matchID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrMatchNotFound)
		}
		return nil, fmt.Errorf("resolve match id %s: %w", matchID, err)
	}

	data, err := r.store.Get(ctx, r.prefix+"match:"+string(pair))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrMatchNotFound)
		}
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return unmarshalMatch(data)
}

// CreateIfAbsent writes the match only if no record exists for the pair
// yet. A concurrent or earlier write for the same pair surfaces as
// domain.ErrAlreadyExists; the stored record wins.
func (r *Repo) CreateIfAbsent(ctx context.Context, m *match.Match) error {
	data, err := json.Marshal(matchToDoc(m))
	if err != nil {
		return fmt.Errorf("marshal match %s: %w", m.ID, err)
	}

	ok, err := r.store.SetNX(ctx, r.pairKey(m.UserID, m.MatchedUserID), data)
	if err != nil {
		return fmt.Errorf("create match %s: %w", m.ID, err)
	}
	if !ok {
		return fmt.Errorf("pair %s: %w", match.PairKey(m.UserID, m.MatchedUserID), domain.ErrAlreadyExists)
	}

	pair := match.PairKey(m.UserID, m.MatchedUserID)
	if err := r.store.Set(ctx, r.idKey(m.ID), []byte(pair)); err != nil {
		return fmt.Errorf("index match id %s: %w", m.ID, err)
	}
	return nil
}

// Save overwrites an existing match record after a status transition.
func (r *Repo) Save(ctx context.Context, m *match.Match) error {
	data, err := json.Marshal(matchToDoc(m))
	if err != nil {
		return fmt.Errorf("marshal match %s: %w", m.ID, err)
	}
	if err := r.store.Set(ctx, r.pairKey(m.UserID, m.MatchedUserID), data); err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

// ListPending returns all pending matches. Used by the expiry sweep;
// a SCAN over the pair keyspace is acceptable at sweep cadence.
func (r *Repo) ListPending(ctx context.Context) ([]*match.Match, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"match:*")
	if err != nil {
		return nil, fmt.Errorf("scan matches: %w", err)
	}

	var out []*match.Match
	for _, key := range keys {
		// matchid keys share no prefix overlap, but guard anyway
		if !strings.HasPrefix(key, r.prefix+"match:") {
			continue
		}
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue // deleted between scan and get
			}
			return nil, fmt.Errorf("get match %s: %w", key, err)
		}
		m, err := unmarshalMatch(data)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		if m.Status == match.StatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

func unmarshalMatch(data []byte) (*match.Match, error) {
	var doc matchDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal match: %w", err)
	}
	return docToMatch(doc), nil
}
