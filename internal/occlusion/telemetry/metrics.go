// Package telemetry exposes Prometheus collectors for the visibility
// service. All public functions are safe to call unconditionally: metrics
// are always registered, and recording is cheap enough (atomic
// counter/histogram updates) that there is no opt-in flag gating it.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	entriesLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "occlusion_entries_loaded",
		Help: "Number of (UUID, level) entries in the currently published snapshot.",
	})
	loadSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "occlusion_load_seconds",
		Help:    "Wall-clock time to stream, parse, and build the visibility store at startup.",
		Buckets: prometheus.DefBuckets,
	})
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "occlusion_decisions_total",
		Help: "Decisions returned by the query engine, labeled by outcome.",
	}, []string{"result"})
	queryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "occlusion_query_errors_total",
		Help: "Query validation errors, labeled by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(entriesLoaded, loadSeconds, decisionsTotal, queryErrorsTotal)
}

// ObserveLoad records a completed (successful) load: its duration and the
// resulting entry count.
func ObserveLoad(d time.Duration, entries uint64) {
	loadSeconds.Observe(d.Seconds())
	entriesLoaded.Set(float64(entries))
}

// ObserveDecision increments the counter for one decision outcome:
// "visible", "hidden", or "unknown".
func ObserveDecision(result string) {
	decisionsTotal.WithLabelValues(result).Inc()
}

// ObserveQueryError increments the counter for one query validation error
// kind: "malformed_uuid" or "mask_out_of_range".
func ObserveQueryError(kind string) {
	queryErrorsTotal.WithLabelValues(kind).Inc()
}

// Handler returns the Prometheus exposition HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
