// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StackScout/pkg/breaker"
)

const namespace = "stackscout"

// Metrics holds all custom Prometheus metrics for the application.
// Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Circuit breaker metrics
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec

	// Search provider metrics
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	// Research metrics
	ResearchOutcomes *prometheus.CounterVec
	ResearchDuration prometheus.Histogram
	ResearchInFlight prometheus.Gauge
	SessionsStarted  prometheus.Counter
	ResearchQuality  prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// 0 closed, 1 open, 2 half-open
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),

		BreakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),

		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Search provider calls by outcome",
		}, []string{"provider", "outcome"}), // outcome: success, error, rejected

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Search provider call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),

		ResearchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_technologies_total",
			Help:      "Researched technologies by final status",
		}, []string{"status"}),

		ResearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_duration_seconds",
			Help:      "Time to research one technology",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		ResearchInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "research_in_flight",
			Help:      "Technologies currently being researched",
		}),

		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "research_sessions_total",
			Help:      "Research sessions started",
		}),

		ResearchQuality: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "research_quality",
			Help:      "Quality score of completed research",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBreaker records a breaker transition. It matches breaker.StateChangeFunc.
func (m *Metrics) ObserveBreaker(name string, from, to breaker.State, _ breaker.Snapshot) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(to))
	m.BreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// ObserveProvider records one provider call.
func (m *Metrics) ObserveProvider(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case breaker.IsOpen(err):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	if outcome != "rejected" {
		m.ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// ObserveResearch records a finished technology.
func (m *Metrics) ObserveResearch(status string, elapsed time.Duration, quality float64) {
	if m == nil {
		return
	}
	m.ResearchOutcomes.WithLabelValues(status).Inc()
	m.ResearchDuration.Observe(elapsed.Seconds())
	if quality > 0 {
		m.ResearchQuality.Observe(quality)
	}
}

// ResearchStarted and ResearchDone track in-flight work.
func (m *Metrics) ResearchStarted() {
	if m != nil {
		m.ResearchInFlight.Inc()
	}
}

func (m *Metrics) ResearchDone() {
	if m != nil {
		m.ResearchInFlight.Dec()
	}
}

// SessionStarted counts a new research session.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

// CacheStatsFunc reports cumulative cache counters.
type CacheStatsFunc func() (hits, misses, evicted, expired int64)

// WatchCache exposes cache counters read from fn at scrape time.
func (m *Metrics) WatchCache(fn CacheStatsFunc) {
	if m == nil || fn == nil {
		return
	}
	counter := func(name, help string, pick func(h, mi, ev, ex int64) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 {
			h, mi, ev, ex := fn()
			return float64(pick(h, mi, ev, ex))
		})
	}
	m.registry.MustRegister(
		counter("hits_total", "Cache hits", func(h, _, _, _ int64) int64 { return h }),
		counter("misses_total", "Cache misses", func(_, mi, _, _ int64) int64 { return mi }),
		counter("evictions_total", "Entries evicted for size", func(_, _, ev, _ int64) int64 { return ev }),
		counter("expirations_total", "Entries removed after expiry", func(_, _, _, ex int64) int64 { return ex }),
	)
}
