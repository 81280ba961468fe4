// Package chi exposes the matchmaking API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kindred-labs/resonance/internal/domain"
	discoveryuc "github.com/kindred-labs/resonance/internal/usecase/discovery"
	healthuc "github.com/kindred-labs/resonance/internal/usecase/health"
	ingestuc "github.com/kindred-labs/resonance/internal/usecase/ingest"
	lifecycleuc "github.com/kindred-labs/resonance/internal/usecase/lifecycle"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeEmbeddingQuota   = "embedding_quota_exceeded"
	codeEmbeddingError   = "embedding_provider_error"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the API handlers.
type Server struct {
	discovery     *discoveryuc.Service
	lifecycle     *lifecycleuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	discovery *discoveryuc.Service,
	lifecycle *lifecycleuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		discovery: discovery,
		lifecycle: lifecycle,
		ingest:    ingest,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrProfileNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrMatchNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeConflict),
		sentinelHandler(domain.ErrInvalidTransition, http.StatusConflict, codeConflict),
		sentinelHandler(domain.ErrInvalidTrait, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNonFiniteInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeEmbeddingQuota),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users/{userID}/traits", s.UpsertTraits)
		r.Put("/users/{userID}/safety", s.SetSafetyProfile)
		r.Post("/users/{userID}/discover", s.Discover)
		r.Post("/score", s.ScorePair)
		r.Post("/matches/{matchID}/accept", s.respondHandler(lifecycleuc.DecisionAccept))
		r.Post("/matches/{matchID}/reject", s.respondHandler(lifecycleuc.DecisionReject))
		r.Post("/matches/sweep", s.SweepExpired)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// UpsertTraits handles POST /users/{userID}/traits.
func (s *Server) UpsertTraits(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req upsertTraitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Traits) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "traits are required")
		return
	}

	p, err := s.ingest.UpsertTraits(r.Context(), userID, traitsFromRequest(req.Traits))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileToResponse(p))
}

// SetSafetyProfile handles PUT /users/{userID}/safety.
func (s *Server) SetSafetyProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req safetyProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Age <= 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "age must be positive")
		return
	}

	if err := s.ingest.SetSafetyProfile(r.Context(), safetyFromRequest(userID, req)); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Discover handles POST /users/{userID}/discover.
func (s *Server) Discover(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	result, err := s.discovery.Discover(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, discoveryToResponse(result))
}

// ScorePair handles POST /score.
func (s *Server) ScorePair(w http.ResponseWriter, r *http.Request) {
	var req scorePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserA == "" || req.UserB == "" || req.UserA == req.UserB {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "user_a and user_b must be distinct non-empty ids")
		return
	}

	result, err := s.discovery.ScoreUsers(r.Context(), req.UserA, req.UserB)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scoreToResponse(req.UserA, req.UserB, result))
}

// respondHandler builds the accept/reject handler for one decision.
func (s *Server) respondHandler(d lifecycleuc.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")

		resp, err := s.lifecycle.Respond(r.Context(), matchID, d)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, respondToResponse(resp))
	}
}

// SweepExpired handles POST /matches/sweep.
func (s *Server) SweepExpired(w http.ResponseWriter, r *http.Request) {
	expired, err := s.lifecycle.SweepExpired(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{Expired: expired})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrProfileNotFound,
		domain.ErrEmbeddingNotFound,
		domain.ErrMatchNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidTransition,
		domain.ErrInvalidTrait,
		domain.ErrDimensionMismatch,
		domain.ErrNonFiniteInput,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
