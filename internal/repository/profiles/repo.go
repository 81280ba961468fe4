// Package profiles persists trait profiles and safety profiles as JSON documents.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kindred-labs/resonance/internal/db"
	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
)

// store is the consumer interface for profile persistence (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
}

// Repo implements profile storage.
type Repo struct {
	store  store
	prefix string
}

// New creates a profile repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) profileKey(userID string) string { return r.prefix + "profile:" + userID }
func (r *Repo) safetyKey(userID string) string  { return r.prefix + "safety:" + userID }

// SaveProfile stores a user's trait profile.
func (r *Repo) SaveProfile(ctx context.Context, p *profile.Profile) error {
	data, err := json.Marshal(profileToDoc(p))
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", p.UserID(), err)
	}
	if err := r.store.JSONSet(ctx, r.profileKey(p.UserID()), "$", data); err != nil {
		return fmt.Errorf("save profile %s: %w", p.UserID(), err)
	}
	return nil
}

// LoadProfile loads a user's trait profile. Absence maps to domain.ErrProfileNotFound.
func (r *Repo) LoadProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	data, err := r.store.JSONGet(ctx, r.profileKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}

	var doc profileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal profile %s: %w", userID, err)
	}
	return docToProfile(userID, doc)
}

// SaveSafetyProfile stores a user's safety profile.
func (r *Repo) SaveSafetyProfile(ctx context.Context, sp domsafety.Profile) error {
	data, err := json.Marshal(safetyToDoc(sp))
	if err != nil {
		return fmt.Errorf("marshal safety profile %s: %w", sp.UserID, err)
	}
	if err := r.store.JSONSet(ctx, r.safetyKey(sp.UserID), "$", data); err != nil {
		return fmt.Errorf("save safety profile %s: %w", sp.UserID, err)
	}
	return nil
}

// LoadSafetyProfile loads a user's safety profile. Absence maps to domain.ErrNotFound.
func (r *Repo) LoadSafetyProfile(ctx context.Context, userID string) (domsafety.Profile, error) {
	data, err := r.store.JSONGet(ctx, r.safetyKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domsafety.Profile{}, fmt.Errorf("safety profile %s: %w", userID, domain.ErrNotFound)
		}
		return domsafety.Profile{}, fmt.Errorf("load safety profile %s: %w", userID, err)
	}

	var doc safetyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domsafety.Profile{}, fmt.Errorf("unmarshal safety profile %s: %w", userID, err)
	}
	return docToSafety(userID, doc), nil
}
