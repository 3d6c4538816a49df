// internal/common/metrics/metrics.go
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalyticsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_requests_total",
			Help: "Total number of analytics requests by outcome",
		},
		[]string{"outcome"},
	)

	AnalyticsChunksEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_chunks_emitted_total",
			Help: "Total number of stream chunks written",
		},
		[]string{"kind"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"stage", "status"},
	)

	StagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_stages_failed_total",
			Help: "Total number of failed pipeline stages",
		},
		[]string{"stage", "error_code"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_llm_calls_total",
			Help: "Total number of language model calls by agent",
		},
		[]string{"agent", "status"},
	)

	ProductsFetched = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_products_fetched",
			Help:    "Number of product rows returned per fetch",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_streams_active",
			Help: "Number of open analytics streams",
		},
	)
)

// ObserveStage records a stage duration and, on failure, its error code.
func ObserveStage(stage string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		code := "INTERNAL_ERROR"
		var coded interface{ ErrorCode() string }
		if errors.As(err, &coded) {
			code = coded.ErrorCode()
		}
		StagesFailed.WithLabelValues(stage, code).Inc()
	}
	StageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
}
