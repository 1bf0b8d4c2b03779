// Package metrics exposes Prometheus instrumentation for the verification
// lifecycle. All methods are nil-receiver safe so callers can skip metrics
// entirely in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	transitions    *prometheus.CounterVec
	pollLatency    prometheus.Histogram
	providerErrors *prometheus.CounterVec
	breakerOpens   prometheus.Counter
	ticksSkipped   prometheus.Counter
	decisions      *prometheus.CounterVec
	activeSessions prometheus.Gauge
	suspicious     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "transitions_total",
			Help:      "State machine transitions by prior and new status.",
		}, []string{"from", "to"}),
		pollLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "poll_duration_seconds",
			Help:      "Latency of provider status polls.",
			Buckets:   prometheus.DefBuckets,
		}),
		providerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "provider_errors_total",
			Help:      "Provider gateway errors by error code.",
		}, []string{"code"}),
		breakerOpens: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "breaker_opens_total",
			Help:      "Times a session circuit breaker opened.",
		}),
		ticksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "poll_ticks_skipped_total",
			Help:      "Poll ticks skipped while a breaker was open.",
		}),
		decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "decisions_total",
			Help:      "Scored verification decisions by compliance outcome.",
		}, []string{"outcome"}),
		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "active_sessions",
			Help:      "Verification sessions currently being polled.",
		}),
		suspicious: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "verification",
			Name:      "suspicious_activity_total",
			Help:      "Suspicious activity reports received.",
		}),
	}
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.pollLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordProviderError(code string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordBreakerOpen() {
	if m == nil {
		return
	}
	m.breakerOpens.Inc()
}

func (m *Metrics) RecordTickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

func (m *Metrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) RecordSuspicious() {
	if m == nil {
		return
	}
	m.suspicious.Inc()
}
