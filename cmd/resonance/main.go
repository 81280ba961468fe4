package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kindred-labs/resonance/internal/config"
	dbRedis "github.com/kindred-labs/resonance/internal/db/redis"
	"github.com/kindred-labs/resonance/internal/domain/rbs"
	"github.com/kindred-labs/resonance/internal/domain/subspace"
	logpkg "github.com/kindred-labs/resonance/internal/logger"
	"github.com/kindred-labs/resonance/internal/metrics"
	matchrepo "github.com/kindred-labs/resonance/internal/repository/matches"
	profilerepo "github.com/kindred-labs/resonance/internal/repository/profiles"
	vectorrepo "github.com/kindred-labs/resonance/internal/repository/vector"
	"github.com/kindred-labs/resonance/internal/scoring/infogain"
	"github.com/kindred-labs/resonance/internal/scoring/resonance"
	scsafety "github.com/kindred-labs/resonance/internal/scoring/safety"
	"github.com/kindred-labs/resonance/internal/scoring/uplift"
	chiTransport "github.com/kindred-labs/resonance/internal/transport/chi"
	openaiEmb "github.com/kindred-labs/resonance/internal/transport/openai"
	discoveryuc "github.com/kindred-labs/resonance/internal/usecase/discovery"
	healthuc "github.com/kindred-labs/resonance/internal/usecase/health"
	ingestuc "github.com/kindred-labs/resonance/internal/usecase/ingest"
	lifecycleuc "github.com/kindred-labs/resonance/internal/usecase/lifecycle"
	scoreuc "github.com/kindred-labs/resonance/internal/usecase/score"
	"github.com/kindred-labs/resonance/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting resonance API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterScoringMetrics()
	metrics.RegisterEmbeddingMetrics()

	// Domain construction — invariant violations refuse startup.
	weights, err := rbs.NewWeights(cfg.RBS.Alpha, cfg.RBS.Beta, cfg.RBS.Gamma, cfg.RBS.Delta)
	if err != nil {
		logger.Fatal("Invalid scoring weights", zap.Error(err))
	}

	partition, err := subspace.NewPartition(cfg.Embedding.Dimensions, subspacesFromConfig(cfg.Subspaces))
	if err != nil {
		logger.Fatal("Invalid subspace partition", zap.Error(err))
	}

	upliftModel, err := uplift.NewModel(cfg.Uplift.TreatmentWeights, cfg.Uplift.ControlWeights, cfg.Uplift.ModelVersion)
	if err != nil {
		logger.Fatal("Invalid uplift model", zap.Error(err))
	}

	srScorer := resonance.New(partition)
	igScorer := infogain.New(cfg.InfoGain.MinTraitsPerDimension)
	scEvaluator := scsafety.New(scsafety.Config{
		DefaultMaxDistanceKm: cfg.Safety.DefaultMaxDistanceKm,
		SafeDistanceKm:       cfg.Safety.SafeDistanceKm,
		DefaultMaxAgeGap:     cfg.Safety.DefaultMaxAgeGap,
	})

	// Repositories
	prefix := cfg.Storage.KeyPrefix
	vectors := vectorrepo.New(store, prefix, cfg.Embedding.Dimensions)
	profiles := profilerepo.New(store, prefix)
	matches := matchrepo.New(store, prefix)

	if err := vectors.EnsureIndex(ctx, vectorrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	}); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
	})
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Use case services
	scoreSvc := scoreuc.New(
		weights, srScorer, upliftModel, igScorer, scEvaluator,
		time.Duration(cfg.RBS.ScoreBudgetMs)*time.Millisecond,
	)
	discoverySvc := discoveryuc.New(vectors, profiles, matches, scoreSvc, discoveryuc.Config{
		Overfetch:   cfg.Discovery.Overfetch,
		Limit:       cfg.Discovery.Limit,
		MatchTTL:    time.Duration(cfg.Discovery.MatchTTLHrs) * time.Hour,
		MaxParallel: cfg.Discovery.MaxScorePar,
	})
	lifecycleSvc := lifecycleuc.New(matches)
	ingestSvc := ingestuc.New(profiles, vectors, embedder, cfg.Embedding.Dimensions)
	healthSvc := healthuc.New(store, vectors, embedder)

	server := chiTransport.NewServer(discoverySvc, lifecycleSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func subspacesFromConfig(specs []config.SubspaceSpec) []subspace.Subspace {
	out := make([]subspace.Subspace, len(specs))
	for i, s := range specs {
		out[i] = subspace.New(s.Name, s.Start, s.End, s.Weight)
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
