// Package metrics exposes solver and HTTP counters through a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feed_optimizer"

// Metrics holds the application's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SolvesTotal       *prometheus.CounterVec
	SolveDuration     *prometheus.HistogramVec
	SwarmIterations   prometheus.Histogram
	HTTPRequestsTotal *prometheus.CounterVec
	CatalogueLookups  *prometheus.CounterVec
}

// New creates a registry with Go and process collectors plus the
// application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.SolvesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "solves_total",
		Help:      "Number of optimization runs by method and outcome.",
	}, []string{"method", "status"})

	m.SolveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "solve_duration_seconds",
		Help:      "Time spent building and solving a formulation.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"method"})

	m.SwarmIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "swarm_iterations",
		Help:      "Iterations run by the particle swarm before stopping.",
		Buckets:   prometheus.LinearBuckets(100, 200, 10),
	})

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by path and status code.",
	}, []string{"path", "status"})

	m.CatalogueLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalogue_lookups_total",
		Help:      "Ingredient lookups by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(m.SolvesTotal, m.SolveDuration, m.SwarmIterations, m.HTTPRequestsTotal, m.CatalogueLookups)
	return m
}

// ObserveSolve records one finished solve.
func (m *Metrics) ObserveSolve(method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SolvesTotal.WithLabelValues(method, status).Inc()
	m.SolveDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveSwarm records the iteration count of a swarm run.
func (m *Metrics) ObserveSwarm(iterations int) {
	if m == nil {
		return
	}
	m.SwarmIterations.Observe(float64(iterations))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(path string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, http.StatusText(status)).Inc()
}

// ObserveLookup records one catalogue lookup outcome.
func (m *Metrics) ObserveLookup(outcome string) {
	if m == nil {
		return
	}
	m.CatalogueLookups.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
