// Package ingest accepts trait and safety profile updates and keeps the
// user's embedding in sync with the trait profile.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/logger"
)

// Service handles profile ingestion.
type Service struct {
	profiles ProfileStore
	vectors  VectorStore
	embed    domain.Embedder
	dim      int
}

// New creates an ingest service. dim is the configured embedding width.
func New(profiles ProfileStore, vectors VectorStore, embed domain.Embedder, dim int) *Service {
	return &Service{profiles: profiles, vectors: vectors, embed: embed, dim: dim}
}

// UpsertTraits merges traits into the user's profile, persists it, and
// re-embeds the profile text. A first write creates the profile. The
// profile save and the embedding update are not transactional; a failed
// embed leaves the previous vector serving until the next upsert.
func (s *Service) UpsertTraits(ctx context.Context, userID string, traits []profile.Trait) (*profile.Profile, error) {
	if len(traits) == 0 {
		return nil, fmt.Errorf("%w: no traits given", domain.ErrInvalidTrait)
	}

	p, err := s.profiles.LoadProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		p = profile.New(userID)
	}

	for _, t := range traits {
		if err := p.Add(t); err != nil {
			return nil, fmt.Errorf("trait %s/%s: %w", t.Dimension, t.Name, err)
		}
	}

	if err := s.profiles.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	result, err := s.embed.Embed(ctx, profileText(p))
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}
	if err := domain.ValidateVector(result.Embedding, s.dim); err != nil {
		return nil, fmt.Errorf("provider embedding: %w", err)
	}
	if err := s.vectors.Upsert(ctx, userID, result.Embedding); err != nil {
		return nil, fmt.Errorf("store embedding: %w", err)
	}

	logger.FromContext(ctx).Info("profile ingested",
		zap.String("user_id", userID),
		zap.Int("traits", p.TraitCount()),
		zap.Int("tokens", result.TotalTokens),
	)
	return p, nil
}

// SetSafetyProfile replaces the user's safety profile.
func (s *Service) SetSafetyProfile(ctx context.Context, sp domsafety.Profile) error {
	if sp.UserID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidTrait)
	}
	if err := s.profiles.SaveSafetyProfile(ctx, sp); err != nil {
		return fmt.Errorf("save safety profile: %w", err)
	}
	return nil
}

// profileText renders the profile into a deterministic embedding prompt.
// Traits() is sorted, so identical profiles embed identical text.
func profileText(p *profile.Profile) string {
	var b strings.Builder
	var lastDim profile.Dimension
	for _, t := range p.Traits() {
		if t.Dimension != lastDim {
			if lastDim != "" {
				b.WriteString("\n")
			}
			b.WriteString(string(t.Dimension))
			b.WriteString(":")
			lastDim = t.Dimension
		}
		fmt.Fprintf(&b, " %s=%.2f", t.Name, t.Value)
	}
	return b.String()
}
