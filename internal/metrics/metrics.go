// Package metrics exposes Prometheus instrumentation for the recommender.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RecommendationsTotal.
const (
	OutcomeOK               = "ok"
	OutcomeNoMatches        = "no_matches"
	OutcomeInvalidInput     = "invalid_input"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeError            = "error"
)

var (
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plantrec_pipeline_stage_duration_seconds",
			Help:    "Duration of each recommendation pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "inject", "normalize", "scale", "cluster", "select"
	)

	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantrec_recommendations_total",
			Help: "Total number of recommendation runs by outcome",
		},
		[]string{"outcome"},
	)

	DegenerateColumnsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plantrec_degenerate_columns_total",
			Help: "Total number of zero-variance feature columns seen while scaling",
		},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plantrec_dataset_rows",
			Help: "Number of species rows in the loaded base dataset",
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantrec_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plantrec_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plantrec_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// RecordStage records how long a pipeline stage took.
func RecordStage(stage string, d time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordOutcome counts one finished pipeline run.
func RecordOutcome(outcome string) {
	RecommendationsTotal.WithLabelValues(outcome).Inc()
}

// RecordDegenerate counts zero-variance columns found during scaling.
func RecordDegenerate(n int) {
	DegenerateColumnsTotal.Add(float64(n))
}

// SetDatasetRows records the size of the base dataset.
func SetDatasetRows(n int) {
	DatasetRows.Set(float64(n))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RecordRateLimited counts one rejected request.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
