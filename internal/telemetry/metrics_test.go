package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m.QueriesTotal == nil {
		t.Error("QueriesTotal should not be nil")
	}
	if m.QueryDurationMs == nil {
		t.Error("QueryDurationMs should not be nil")
	}
	if m.ClassificationConfidence == nil {
		t.Error("ClassificationConfidence should not be nil")
	}
	if m.UpstreamDurationMs == nil {
		t.Error("UpstreamDurationMs should not be nil")
	}
	if m.FallbackTotal == nil {
		t.Error("FallbackTotal should not be nil")
	}
	if m.RateLimitHitsTotal == nil {
		t.Error("RateLimitHitsTotal should not be nil")
	}
}

func testMetrics() *Metrics {
	queriesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_assistant_queries_total",
		Help: "Test counter",
	}, []string{"route", "page", "flow"})

	queryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_assistant_query_duration_ms",
		Help:    "Test histogram",
		Buckets: []float64{100, 1000, 10000},
	}, []string{"route"})

	confidence := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_assistant_classification_confidence",
		Help:    "Test histogram",
		Buckets: []float64{0.6, 0.75, 0.9},
	}, []string{"page"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_assistant_upstream_duration_ms",
		Help:    "Test histogram",
		Buckets: []float64{100, 1000, 10000},
	}, []string{"route", "outcome"})

	return &Metrics{
		QueriesTotal:             queriesTotal,
		QueryDurationMs:          queryDuration,
		ClassificationConfidence: confidence,
		UpstreamDurationMs:       upstreamDuration,
		FallbackTotal:            prometheus.NewCounter(prometheus.CounterOpts{Name: "test_assistant_fallback_total", Help: "Test"}),
		StagedBytesTotal:         prometheus.NewCounter(prometheus.CounterOpts{Name: "test_assistant_staged_bytes_total", Help: "Test"}),
		RejectedFilesTotal:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_assistant_rejected_files_total", Help: "Test"}),
		RateLimitHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_assistant_rate_limit_hits_total",
			Help: "Test counter",
		}, []string{"dimension"}),
	}
}

func TestRecordQuery(t *testing.T) {
	m := testMetrics()

	m.RecordQuery(QueryLabels{
		Route:         "redirect",
		Page:          "templates",
		Flow:          "C",
		Confidence:    0.9,
		DurationMs:    12,
		StagedBytes:   2048,
		RejectedFiles: 1,
	})

	counter, err := m.QueriesTotal.GetMetricWithLabelValues("redirect", "templates", "C")
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var metric dto.Metric
	counter.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected query count 1, got %v", *metric.Counter.Value)
	}

	m.StagedBytesTotal.Write(&metric)
	if *metric.Counter.Value != 2048 {
		t.Errorf("expected 2048 staged bytes, got %v", *metric.Counter.Value)
	}

	m.RejectedFilesTotal.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected 1 rejected file, got %v", *metric.Counter.Value)
	}
}

func TestRecordFallback(t *testing.T) {
	m := testMetrics()
	m.RecordFallback()
	m.RecordFallback()

	var metric dto.Metric
	m.FallbackTotal.Write(&metric)
	if *metric.Counter.Value != 2 {
		t.Errorf("expected fallback count 2, got %v", *metric.Counter.Value)
	}
}

func TestRecordRateLimitHit(t *testing.T) {
	m := testMetrics()
	m.RecordRateLimitHit("rpm")

	counter, _ := m.RateLimitHitsTotal.GetMetricWithLabelValues("rpm")
	var metric dto.Metric
	counter.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected rate limit hit count 1, got %v", *metric.Counter.Value)
	}
}
