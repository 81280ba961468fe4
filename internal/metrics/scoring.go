package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scoring and discovery Prometheus metrics.
var (
	ScoreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resonance",
			Name:      "score_duration_seconds",
			Help:      "RBS score computation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"component"}, // sr, cu, ig, sc, total
	)

	ScoreBudgetOverrunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "score_budget_overruns_total",
			Help:      "Total RBS calls exceeding the advisory latency budget",
		},
	)

	ScoreTotals = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resonance",
			Name:      "score_total",
			Help:      "Distribution of combined RBS totals",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	DiscoveryRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "discovery_runs_total",
			Help:      "Total discovery runs by outcome",
		},
		[]string{"outcome"}, // ok, insufficient_data, no_profile, error
	)

	DiscoveryCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "discovery_candidates_total",
			Help:      "Candidates seen by the discovery pipeline, by stage",
		},
		[]string{"stage"}, // fetched, already_matched, scored, score_failed, persisted, raced
	)

	MatchesExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resonance",
			Name:      "matches_expired_total",
			Help:      "Total pending matches moved to expired by the sweep",
		},
	)
)

var scoringMetricsRegistered bool

// RegisterScoringMetrics registers scoring metrics. Must be called once from main.
func RegisterScoringMetrics() {
	if scoringMetricsRegistered {
		return
	}
	prometheus.MustRegister(ScoreDuration)
	prometheus.MustRegister(ScoreBudgetOverrunsTotal)
	prometheus.MustRegister(ScoreTotals)
	prometheus.MustRegister(DiscoveryRunsTotal)
	prometheus.MustRegister(DiscoveryCandidatesTotal)
	prometheus.MustRegister(MatchesExpiredTotal)
	scoringMetricsRegistered = true
}
