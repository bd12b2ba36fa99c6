// Package metrics exposes Prometheus counters for the status reconciliation job and
// request timings for the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "club"

// Recorder owns a private registry so tests can create as many as they like without
// colliding on the global default registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	reconcileRuns    *prometheus.CounterVec
	matchesCompleted prometheus.Counter
	malformedSkipped prometheus.Counter
	requestDuration  *prometheus.HistogramVec
}

// New builds a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_reconcile_runs_total",
			Help:      "Batch status updater runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		matchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Matches moved from UPCOMING to COMPLETED by the batch updater.",
		}),
		malformedSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_reconcile_malformed_total",
			Help:      "Upcoming matches skipped because their time range could not be parsed.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.reconcileRuns,
		r.matchesCompleted,
		r.malformedSkipped,
		r.requestDuration,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (used by tests to gather values).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordReconcile tracks one batch updater run.
func (r *Recorder) RecordReconcile(trigger string, completed, skipped int, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.reconcileRuns.WithLabelValues(trigger, outcome).Inc()
	r.matchesCompleted.Add(float64(completed))
	r.malformedSkipped.Add(float64(skipped))
}

// RecordHTTPRequest observes the latency of one handled request.
// route should be the registered pattern ("/api/v1/matches/:id"), not the raw path,
// to keep label cardinality bounded.
func (r *Recorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
