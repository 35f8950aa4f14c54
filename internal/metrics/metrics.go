// Package metrics exposes the Prometheus counters for resource moderation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters.  Build one per registry.
type Metrics struct {
	submitted       *prometheus.CounterVec
	moderated       *prometheus.CounterVec
	cleanupFailures prometheus.Counter
	gatherer        prometheus.Gatherer
}

// New registers the counters on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the counters on reg and serves from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholrhub",
			Name:      "resources_submitted_total",
			Help:      "Resources submitted, by initial moderation status.",
		}, []string{"status"}),
		moderated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholrhub",
			Name:      "resources_moderated_total",
			Help:      "Moderation decisions, by action.",
		}, []string{"action"}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scholrhub",
			Name:      "storage_cleanup_failures_total",
			Help:      "Backing files that could not be removed when their resource was rejected.",
		}),
		gatherer: g,
	}
	reg.MustRegister(m.submitted, m.moderated, m.cleanupFailures)
	return m
}

func (m *Metrics) ResourceSubmitted(status string) { m.submitted.WithLabelValues(status).Inc() }

func (m *Metrics) ResourceModerated(action string) { m.moderated.WithLabelValues(action).Inc() }

func (m *Metrics) StorageCleanupFailed() { m.cleanupFailures.Inc() }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
