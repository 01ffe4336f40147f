package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks simulation-engine metrics: request counts by kind
// and outcome, fatal-halt occurrences, latency, and rejected requests
// from the ambient HTTP middleware (rate limiting).
type Collector struct {
	simulations *prometheus.CounterVec
	fatal       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rateLimited prometheus.Counter
}

// NewCollector creates and registers a Collector on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_simulations_total",
			Help: "Total simulation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fatal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_fatal_halts_total",
			Help: "Total fatal restore failures, by kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "simulator_simulation_duration_seconds",
			Help:    "Simulation request latency by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_rate_limited_requests_total",
			Help: "Total requests rejected by the per-client rate limiter.",
		}),
	}
	reg.MustRegister(c.simulations, c.fatal, c.latency, c.rateLimited)
	return c
}

// RecordRateLimited records one request rejected by the rate limiter.
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// RecordSuccess records a successful simulation of the given kind.
func (c *Collector) RecordSuccess(kind string, duration time.Duration) {
	c.simulations.WithLabelValues(kind, "success").Inc()
	c.latency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordFailure records a simulation that completed with success=false
// (a decoded error, not a fatal halt).
func (c *Collector) RecordFailure(kind string, duration time.Duration) {
	c.simulations.WithLabelValues(kind, "failure").Inc()
	c.latency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordFatal records a fatal restore failure that halts the backend.
func (c *Collector) RecordFatal(kind string) {
	c.simulations.WithLabelValues(kind, "fatal").Inc()
	c.fatal.WithLabelValues(kind).Inc()
}
