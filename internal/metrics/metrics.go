// Package metrics exposes Prometheus instrumentation for the feedback loop
// and the downstream pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// Metrics holds the collectors for one process. Collectors are registered on
// a private registry so tests can run in parallel without collisions.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	roundsTotal        *prometheus.CounterVec
	collaboratorErrors *prometheus.CounterVec
	runDuration        prometheus.Histogram
	roundsPerRun       prometheus.Histogram
	uploadsTotal       *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortcycle_runs_total",
			Help: "Completed workflow runs by outcome.",
		}, []string{"outcome"}),
		roundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortcycle_rounds_total",
			Help: "Feedback loop rounds by verdict.",
		}, []string{"verdict"}),
		collaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortcycle_collaborator_errors_total",
			Help: "Collaborator failures by role.",
		}, []string{"role"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shortcycle_run_duration_seconds",
			Help:    "Wall-clock duration of workflow runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		roundsPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shortcycle_rounds_per_run",
			Help:    "Rounds consumed per run.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortcycle_uploads_total",
			Help: "Video uploads by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.roundsTotal,
		m.collaboratorErrors,
		m.runDuration,
		m.roundsPerRun,
		m.uploadsTotal,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status models.RunStatus, attempts int, duration time.Duration) {
	m.runsTotal.WithLabelValues(string(status)).Inc()
	m.runDuration.Observe(duration.Seconds())
	if attempts > 0 {
		m.roundsPerRun.Observe(float64(attempts))
	}
}

// ObserveRound records one reviewed round.
func (m *Metrics) ObserveRound(status models.JudgmentStatus) {
	m.roundsTotal.WithLabelValues(string(status)).Inc()
}

// ObserveCollaboratorError records a collaborator failure by role.
func (m *Metrics) ObserveCollaboratorError(role string) {
	m.collaboratorErrors.WithLabelValues(role).Inc()
}

// ObserveUpload records an upload attempt.
func (m *Metrics) ObserveUpload(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.uploadsTotal.WithLabelValues(result).Inc()
}
