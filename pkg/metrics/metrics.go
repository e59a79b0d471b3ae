// Package metrics exposes the quoter's fetch timings as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_swap_fetch_duration_seconds",
			Help:    "Remote fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_swap_fetch_errors_total",
			Help: "Total number of failed remote fetches",
		},
		[]string{"query"},
	)

	MetricEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_swap_metric_events_total",
			Help: "Total number of metric events received from the quoter",
		},
		[]string{"key"},
	)
)

// Sink adapts the Prometheus series above to the quoter's metric interface.
type Sink struct{}

// NewSink returns a Prometheus-backed sink.
func NewSink() Sink { return Sink{} }

// PutMetric routes one quoter metric event to its series.
func (Sink) PutMetric(key string, value float64, unit string) {
	MetricEvents.WithLabelValues(key).Inc()

	switch key {
	case "quote_fetch_latency":
		FetchDuration.WithLabelValues("quote").Observe(value / 1000)
	case "approval_fetch_latency":
		FetchDuration.WithLabelValues("approval").Observe(value / 1000)
	case "quote_fetch_errors":
		FetchErrors.WithLabelValues("quote").Add(value)
	}
}
