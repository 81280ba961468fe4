package chi

import (
	"time"

	"github.com/kindred-labs/resonance/internal/domain/match"
	"github.com/kindred-labs/resonance/internal/domain/profile"
	domsafety "github.com/kindred-labs/resonance/internal/domain/safety"
	"github.com/kindred-labs/resonance/internal/scoring/infogain"
	"github.com/kindred-labs/resonance/internal/scoring/safety"
	discoveryuc "github.com/kindred-labs/resonance/internal/usecase/discovery"
	lifecycleuc "github.com/kindred-labs/resonance/internal/usecase/lifecycle"
	scoreuc "github.com/kindred-labs/resonance/internal/usecase/score"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type traitRequest struct {
	Dimension  string  `json:"dimension"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

type upsertTraitsRequest struct {
	Traits []traitRequest `json:"traits"`
}

func traitsFromRequest(in []traitRequest) []profile.Trait {
	out := make([]profile.Trait, len(in))
	for i, t := range in {
		out[i] = profile.Trait{
			Dimension:  profile.Dimension(t.Dimension),
			Name:       t.Name,
			Value:      t.Value,
			Confidence: t.Confidence,
			Source:     t.Source,
		}
	}
	return out
}

type profileResponse struct {
	UserID       string  `json:"user_id"`
	TraitCount   int     `json:"trait_count"`
	Completeness float64 `json:"completeness"`
}

func profileToResponse(p *profile.Profile) profileResponse {
	return profileResponse{
		UserID:       p.UserID(),
		TraitCount:   p.TraitCount(),
		Completeness: p.Completeness(infogain.DefaultMinTraitsPerDimension),
	}
}

type safetyProfileRequest struct {
	Age      int      `json:"age"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	RedFlags []string `json:"red_flags,omitempty"`

	MaxDistanceKm *float64 `json:"max_distance_km,omitempty"`
	MinAge        *int     `json:"min_age,omitempty"`
	MaxAge        *int     `json:"max_age,omitempty"`
}

func safetyFromRequest(userID string, req safetyProfileRequest) domsafety.Profile {
	sp := domsafety.Profile{
		UserID:   userID,
		Age:      req.Age,
		Location: domsafety.Coordinates{Lat: req.Lat, Lon: req.Lon},
		Preferences: domsafety.Preferences{
			MaxDistanceKm: req.MaxDistanceKm,
			MinAge:        req.MinAge,
			MaxAge:        req.MaxAge,
		},
	}
	for _, f := range req.RedFlags {
		sp.RedFlags = append(sp.RedFlags, domsafety.RedFlag(f))
	}
	return sp
}

type scorePairRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

type componentsResponse struct {
	SubspaceResonance float64 `json:"subspace_resonance"`
	CausalUplift      float64 `json:"causal_uplift"`
	InformationGain   float64 `json:"information_gain"`
	SafetyPenalty     float64 `json:"safety_penalty"`
}

type safetyFlagResponse struct {
	Type        string  `json:"type"`
	Severity    float64 `json:"severity"`
	Description string  `json:"description"`
}

type scoreResponse struct {
	UserA          string               `json:"user_a"`
	UserB          string               `json:"user_b"`
	Total          float64              `json:"total"`
	Components     componentsResponse   `json:"components"`
	SafetyFlags    []safetyFlagResponse `json:"safety_flags,omitempty"`
	UpliftModel    string               `json:"uplift_model"`
	UpliftConfidence float64            `json:"uplift_confidence"`
	ComputedAt     time.Time            `json:"computed_at"`
}

func scoreToResponse(userA, userB string, r scoreuc.Result) scoreResponse {
	return scoreResponse{
		UserA: userA,
		UserB: userB,
		Total: r.Score.Total,
		Components: componentsResponse{
			SubspaceResonance: r.Score.SR,
			CausalUplift:      r.Score.CU,
			InformationGain:   r.Score.IG,
			SafetyPenalty:     r.Score.SC,
		},
		SafetyFlags:    safetyFlagsToResponse(r.Safety.Flags),
		UpliftModel:    r.Uplift.ModelVersion,
		UpliftConfidence: r.Uplift.Confidence,
		ComputedAt:     r.Score.ComputedAt,
	}
}

func safetyFlagsToResponse(flags []safety.Flag) []safetyFlagResponse {
	if len(flags) == 0 {
		return nil
	}
	out := make([]safetyFlagResponse, len(flags))
	for i, f := range flags {
		out[i] = safetyFlagResponse{Type: f.Type, Severity: f.Severity, Description: f.Description}
	}
	return out
}

type matchResponse struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	MatchedUserID string             `json:"matched_user_id"`
	Total         float64            `json:"total"`
	Components    componentsResponse `json:"components"`
	Status        string             `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
	RespondedAt   *time.Time         `json:"responded_at,omitempty"`
}

func matchToResponse(m *match.Match) matchResponse {
	return matchResponse{
		ID:            m.ID,
		UserID:        m.UserID,
		MatchedUserID: m.MatchedUserID,
		Total:         m.Score.Total,
		Components: componentsResponse{
			SubspaceResonance: m.Score.SR,
			CausalUplift:      m.Score.CU,
			InformationGain:   m.Score.IG,
			SafetyPenalty:     m.Score.SC,
		},
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
		RespondedAt: m.RespondedAt,
	}
}

type discoveryResponse struct {
	UserID           string          `json:"user_id"`
	Matches          []matchResponse `json:"matches"`
	InsufficientData bool            `json:"insufficient_data,omitempty"`
}

func discoveryToResponse(r discoveryuc.Result) discoveryResponse {
	matches := make([]matchResponse, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = matchToResponse(m)
	}
	return discoveryResponse{
		UserID:           r.UserID,
		Matches:          matches,
		InsufficientData: r.InsufficientData,
	}
}

type respondResponse struct {
	Match  matchResponse `json:"match"`
	Mutual bool          `json:"mutual"`
}

func respondToResponse(r lifecycleuc.Response) respondResponse {
	return respondResponse{Match: matchToResponse(r.Match), Mutual: r.Mutual}
}

type sweepResponse struct {
	Expired int `json:"expired"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
