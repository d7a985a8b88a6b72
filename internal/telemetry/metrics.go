package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the assistant gateway.
type Metrics struct {
	QueriesTotal             *prometheus.CounterVec
	QueryDurationMs          *prometheus.HistogramVec
	ClassificationConfidence *prometheus.HistogramVec
	UpstreamDurationMs       *prometheus.HistogramVec
	FallbackTotal            prometheus.Counter
	StagedBytesTotal         prometheus.Counter
	RejectedFilesTotal       prometheus.Counter
	RateLimitHitsTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_queries_total",
			Help: "Total queries processed, by resolved route.",
		}, []string{"route", "page", "flow"}),

		QueryDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistant_query_duration_ms",
			Help:    "End-to-end query handling duration in milliseconds.",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 15000, 60000, 180000},
		}, []string{"route"}),

		ClassificationConfidence: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistant_classification_confidence",
			Help:    "Confidence scores produced by the classifier.",
			Buckets: []float64{0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 1.0},
		}, []string{"page"}),

		UpstreamDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistant_upstream_duration_ms",
			Help:    "Duration of calls to the RAG and vector backends in milliseconds.",
			Buckets: []float64{50, 250, 1000, 5000, 15000, 60000, 180000},
		}, []string{"route", "outcome"}),

		FallbackTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_fallback_total",
			Help: "Degraded responses synthesized because the RAG backend was unavailable.",
		}),

		StagedBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_staged_bytes_total",
			Help: "Bytes spooled to the upload staging area.",
		}),

		RejectedFilesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assistant_rejected_files_total",
			Help: "Uploads rejected during staging validation.",
		}),

		RateLimitHitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"dimension"}),
	}
}

// QueryLabels holds the observations for one completed query.
type QueryLabels struct {
	Route         string // redirect, generate, fallback, error
	Page          string
	Flow          string
	Confidence    float64
	DurationMs    float64
	StagedBytes   int64
	RejectedFiles int
}

// RecordQuery records metrics for a completed query.
func (m *Metrics) RecordQuery(labels QueryLabels) {
	m.QueriesTotal.WithLabelValues(labels.Route, labels.Page, labels.Flow).Inc()
	m.QueryDurationMs.WithLabelValues(labels.Route).Observe(labels.DurationMs)
	m.ClassificationConfidence.WithLabelValues(labels.Page).Observe(labels.Confidence)

	if labels.StagedBytes > 0 {
		m.StagedBytesTotal.Add(float64(labels.StagedBytes))
	}
	if labels.RejectedFiles > 0 {
		m.RejectedFilesTotal.Add(float64(labels.RejectedFiles))
	}
}

// RecordUpstream records one adapter call.
func (m *Metrics) RecordUpstream(route, outcome string, durationMs float64) {
	m.UpstreamDurationMs.WithLabelValues(route, outcome).Observe(durationMs)
}

// RecordFallback counts a degraded response.
func (m *Metrics) RecordFallback() {
	m.FallbackTotal.Inc()
}

// RecordRateLimitHit counts a rate-limited request.
func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHitsTotal.WithLabelValues(dimension).Inc()
}
