// Package metrics exposes Prometheus metrics for the matchmaking service.
// A nil *Manager is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a registry and every collector registered on it
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	queueJoins       *prometheus.CounterVec
	queueLeaves      *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	matchesCreated   *prometheus.CounterVec
	dequeueConflicts *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	outcomes         *prometheus.CounterVec
	ratingUpdates    prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with its own registry unless WithRegistry is given
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "skillmatch",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initialize()
	return m
}

func (m *Manager) initialize() {
	auto := promauto.With(m.registry)

	m.queueJoins = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "joins_total",
		Help:      "Players that entered a region queue",
	}, []string{"region"})

	m.queueLeaves = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "leaves_total",
		Help:      "Players that left a region queue before being matched",
	}, []string{"region"})

	m.queueDepth = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Entries left in a region queue after the last cycle",
	}, []string{"region"})

	m.matchesCreated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "matchmaking",
		Name:      "matches_created_total",
		Help:      "Matches assembled and dispatched",
	}, []string{"region"})

	m.dequeueConflicts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "matchmaking",
		Name:      "dequeue_conflicts_total",
		Help:      "Group removals that lost a race with another pass",
	}, []string{"region"})

	m.dispatchFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "matchmaking",
		Name:      "dispatch_failures_total",
		Help:      "Matches released back to the queue after dispatch failed",
	}, []string{"region"})

	m.cycleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "matchmaking",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one matchmaking cycle across all regions",
		Buckets:   m.buckets,
	})

	m.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rating",
		Name:      "outcomes_total",
		Help:      "Match outcomes recorded",
	}, []string{"result"})

	m.ratingUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "rating",
		Name:      "player_updates_total",
		Help:      "Individual player rating updates persisted",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration by route and method",
		Buckets:   m.buckets,
	}, []string{"route", "method"})
}

// Registry returns the registry the collectors live on
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) RecordQueueJoin(region string) {
	if m == nil {
		return
	}
	m.queueJoins.WithLabelValues(region).Inc()
}

func (m *Manager) RecordQueueLeave(region string) {
	if m == nil {
		return
	}
	m.queueLeaves.WithLabelValues(region).Inc()
}

func (m *Manager) SetQueueDepth(region string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(region).Set(float64(depth))
}

func (m *Manager) RecordMatchCreated(region string) {
	if m == nil {
		return
	}
	m.matchesCreated.WithLabelValues(region).Inc()
}

func (m *Manager) RecordDequeueConflict(region string) {
	if m == nil {
		return
	}
	m.dequeueConflicts.WithLabelValues(region).Inc()
}

func (m *Manager) RecordDispatchFailure(region string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(region).Inc()
}

func (m *Manager) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Manager) RecordOutcome(result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(result).Inc()
}

func (m *Manager) RecordRatingUpdates(n int) {
	if m == nil {
		return
	}
	m.ratingUpdates.Add(float64(n))
}

func (m *Manager) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
