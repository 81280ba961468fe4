// Package discovery runs the match discovery pipeline: fetch candidates
// from the vector index with over-fetch, drop pairs that already have a
// match record, score the survivors, persist pending matches, and return
// them ranked by combined score.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kindred-labs/resonance/internal/domain"
	"github.com/kindred-labs/resonance/internal/domain/match"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/logger"
	"github.com/kindred-labs/resonance/internal/metrics"
	"github.com/kindred-labs/resonance/internal/usecase/score"
)

// Config holds pipeline tuning.
type Config struct {
	// Overfetch is how many k-NN candidates to request; must be >= Limit
	// to absorb dedup losses.
	Overfetch int
	// Limit caps how many new matches one run produces.
	Limit int
	// MatchTTL is how long a pending match stays actionable.
	MatchTTL time.Duration
	// MaxParallel bounds concurrent pair scoring.
	MaxParallel int
}

// Result is one discovery run's outcome.
type Result struct {
	UserID  string
	Matches []*match.Match
	// InsufficientData is set when the user has no stored embedding yet.
	InsufficientData bool
}

// Service is the discovery pipeline.
type Service struct {
	vectors  VectorSearch
	profiles ProfileStore
	matches  MatchStore
	scorer   Scorer
	cfg      Config
	now      func() time.Time
	newID    func() string
}

// New creates a discovery service.
func New(vectors VectorSearch, profiles ProfileStore, matches MatchStore, scorer Scorer, cfg Config) *Service {
	return &Service{
		vectors:  vectors,
		profiles: profiles,
		matches:  matches,
		scorer:   scorer,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Discover runs the pipeline for one user. A user without an embedding
// gets an InsufficientData result; a user without a trait profile gets an
// empty result. Both are normal outcomes, not errors.
func (s *Service) Discover(ctx context.Context, userID string) (Result, error) {
	log := logger.FromContext(ctx).With(zap.String("user_id", userID))

	queryVec, err := s.vectors.GetVector(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingNotFound) {
			metrics.DiscoveryRunsTotal.WithLabelValues("insufficient_data").Inc()
			return Result{UserID: userID, InsufficientData: true}, nil
		}
		metrics.DiscoveryRunsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("load query vector: %w", err)
	}

	userProfile, err := s.profiles.LoadProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			metrics.DiscoveryRunsTotal.WithLabelValues("no_profile").Inc()
			log.Debug("discovery skipped: no trait profile")
			return Result{UserID: userID}, nil
		}
		metrics.DiscoveryRunsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("load profile: %w", err)
	}

	userSafety, err := s.loadSafety(ctx, userID)
	if err != nil {
		metrics.DiscoveryRunsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	candidates, err := s.vectors.Search(ctx, queryVec, s.cfg.Overfetch, userID)
	if err != nil {
		metrics.DiscoveryRunsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("candidate search: %w", err)
	}
	metrics.DiscoveryCandidatesTotal.WithLabelValues("fetched").Add(float64(len(candidates)))

	// Dedup in similarity order: the first Limit candidates without an
	// existing match record go on to scoring.
	eligible := make([]domain.Candidate, 0, s.cfg.Limit)
	for _, c := range candidates {
		if len(eligible) == s.cfg.Limit {
			break
		}
		_, err := s.matches.FindPair(ctx, userID, c.UserID)
		if err == nil {
			metrics.DiscoveryCandidatesTotal.WithLabelValues("already_matched").Inc()
			continue
		}
		if !errors.Is(err, domain.ErrMatchNotFound) {
			metrics.DiscoveryRunsTotal.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("dedup pair (%s, %s): %w", userID, c.UserID, err)
		}
		eligible = append(eligible, c)
	}

	scored := s.scoreCandidates(ctx, log, userID, queryVec, userProfile, userSafety, eligible)

	now := s.now()
	persisted := make([]*match.Match, 0, len(scored))
	for _, sc := range scored {
		m := &match.Match{
			ID:            s.newID(),
			UserID:        userID,
			MatchedUserID: sc.candidateID,
			Score:         sc.result.Score,
			Status:        match.StatusPending,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.cfg.MatchTTL),
		}
		if err := s.matches.CreateIfAbsent(ctx, m); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// A concurrent run won the pair; its record stands.
				metrics.DiscoveryCandidatesTotal.WithLabelValues("raced").Inc()
				continue
			}
			metrics.DiscoveryRunsTotal.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("persist match (%s, %s): %w", userID, sc.candidateID, err)
		}
		metrics.DiscoveryCandidatesTotal.WithLabelValues("persisted").Inc()
		persisted = append(persisted, m)
	}

	sort.SliceStable(persisted, func(i, j int) bool {
		return persisted[i].Score.Total > persisted[j].Score.Total
	})
	if len(persisted) > s.cfg.Limit {
		persisted = persisted[:s.cfg.Limit]
	}

	metrics.DiscoveryRunsTotal.WithLabelValues("ok").Inc()
	log.Info("discovery run complete",
		zap.Int("fetched", len(candidates)),
		zap.Int("eligible", len(eligible)),
		zap.Int("matches", len(persisted)),
	)
	return Result{UserID: userID, Matches: persisted}, nil
}

// ScoreUsers scores one explicit pair by user IDs, loading both sides'
// embeddings and profiles. Unlike Discover, missing data is an error:
// the caller asked for this exact pair.
func (s *Service) ScoreUsers(ctx context.Context, userA, userB string) (score.Result, error) {
	vecA, err := s.vectors.GetVector(ctx, userA)
	if err != nil {
		return score.Result{}, fmt.Errorf("user %s: %w", userA, err)
	}
	profA, err := s.profiles.LoadProfile(ctx, userA)
	if err != nil {
		return score.Result{}, err
	}
	safA, err := s.loadSafety(ctx, userA)
	if err != nil {
		return score.Result{}, err
	}

	return s.scorePair(ctx, userA, vecA, profA, safA, domain.Candidate{UserID: userB})
}

type scoredCandidate struct {
	candidateID string
	result      score.Result
}

// scoreCandidates scores eligible candidates concurrently. A candidate
// that cannot be scored is dropped and counted; it never fails the run.
func (s *Service) scoreCandidates(
	ctx context.Context, log *zap.Logger, userID string, queryVec []float32,
	userProfile *profile.Profile, userSafety domsafety.Profile, eligible []domain.Candidate,
) []scoredCandidate {
	results := make([]*scoredCandidate, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)

	for i, c := range eligible {
		i, c := i, c
		g.Go(func() error {
			r, err := s.scorePair(gctx, userID, queryVec, userProfile, userSafety, c)
			if err != nil {
				metrics.DiscoveryCandidatesTotal.WithLabelValues("score_failed").Inc()
				log.Warn("candidate dropped",
					zap.String("candidate_id", c.UserID), zap.Error(err))
				return nil
			}
			metrics.DiscoveryCandidatesTotal.WithLabelValues("scored").Inc()
			results[i] = &scoredCandidate{candidateID: c.UserID, result: r}
			return nil
		})
	}
	_ = g.Wait() // goroutines only report via results; errors are isolated above

	out := make([]scoredCandidate, 0, len(eligible))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Service) scorePair(
	ctx context.Context, userID string, queryVec []float32,
	userProfile *profile.Profile, userSafety domsafety.Profile, c domain.Candidate,
) (score.Result, error) {
	candVec := c.Vector
	if candVec == nil {
		v, err := s.vectors.GetVector(ctx, c.UserID)
		if err != nil {
			return score.Result{}, fmt.Errorf("candidate vector: %w", err)
		}
		candVec = v
	}

	candProfile, err := s.profiles.LoadProfile(ctx, c.UserID)
	if err != nil {
		return score.Result{}, fmt.Errorf("candidate profile: %w", err)
	}

	candSafety, err := s.loadSafety(ctx, c.UserID)
	if err != nil {
		return score.Result{}, err
	}

	return s.scorer.Score(ctx, score.PairInput{
		UserA:      userID,
		UserB:      c.UserID,
		EmbeddingA: queryVec,
		EmbeddingB: candVec,
		ProfileA:   userProfile,
		ProfileB:   candProfile,
		SafetyA:    userSafety,
		SafetyB:    candSafety,
	})
}

// loadSafety tolerates a missing safety profile: users who never set one
// are evaluated with empty flags and no preferences.
func (s *Service) loadSafety(ctx context.Context, userID string) (domsafety.Profile, error) {
	sp, err := s.profiles.LoadSafetyProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domsafety.Profile{UserID: userID}, nil
		}
		return domsafety.Profile{}, fmt.Errorf("load safety profile %s: %w", userID, err)
	}
	return sp, nil
}
