// Package metrics exposes Prometheus counters for the message pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes, one per pipeline exit.
const (
	OutcomeEmpty      = "empty"
	OutcomeFiltered   = "filtered"
	OutcomeThrottled  = "throttled"
	OutcomeFeedback   = "feedback"
	OutcomeTaught     = "taught"
	OutcomeEvaluated  = "evaluated"
	OutcomeEvalFailed = "evaluation_failed"
	OutcomeMatched    = "matched"
	OutcomeIntent     = "intent"
	OutcomeLookedUp   = "looked_up"
	OutcomeFallback   = "fallback"
	OutcomeTeachMe    = "teach_me"
	OutcomeSaveFailed = "save_failed"
)

// Metrics holds every collector on its own registry so tests and multiple
// servers in one process never collide on registration.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MessagesTotal  *prometheus.CounterVec
	LookupsTotal   *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	LearnedTotal   prometheus.Counter
	ActiveSessions prometheus.Gauge
}

// New creates and registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tanyabot_messages_total",
				Help: "Messages handled, by how the pipeline answered them",
			},
			[]string{"outcome"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tanyabot_lookups_total",
				Help: "External knowledge source calls by source and outcome (hit, empty, error)",
			},
			[]string{"source", "outcome"},
		),
		LookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tanyabot_lookup_duration_seconds",
				Help:    "External knowledge source call latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "tanyabot_lookup_cache_hits_total",
			Help: "Lookups answered from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "tanyabot_lookup_cache_misses_total",
			Help: "Lookups that went to the network",
		}),
		LearnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tanyabot_learned_answers_total",
			Help: "Answers committed to the QA store",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tanyabot_active_sessions",
			Help: "Sessions currently held in memory",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLookup(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(source, outcome).Inc()
	m.LookupDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) Learned() {
	if m == nil {
		return
	}
	m.LearnedTotal.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
