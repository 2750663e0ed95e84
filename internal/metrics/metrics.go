package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Enrichment
	EnrichmentRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_runs_total",
			Help: "Enrichment runs by final outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "skipped"
	)

	EnrichmentStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrichment_stage_duration_seconds",
			Help:    "Duration of each attempted enrichment stage",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage", "success"},
	)

	VideosIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_index_total",
			Help: "Video embedding index attempts",
		},
		[]string{"success"},
	)

	// Recommendations
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Recommendation responses by the tier that produced them",
		},
		[]string{"method"},
	)

	RecommendationTierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_tier_errors_total",
			Help: "Tier failures that fell through to the next tier",
		},
		[]string{"tier"},
	)

	// Upstream
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"scope"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Open status WebSocket connections",
		},
	)
)

// ObserveStage records one stage outcome. Stages that never ran are ignored.
func ObserveStage(stage string, attempted, success bool, elapsed time.Duration) {
	if !attempted {
		return
	}
	EnrichmentStageDuration.WithLabelValues(stage, boolLabel(success)).Observe(elapsed.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
