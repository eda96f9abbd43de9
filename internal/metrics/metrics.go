// Package metrics exposes Prometheus collectors for room connections.
//
// A nil *Metrics is valid and records nothing, so clients built without
// metrics (tests, one-off runs) need no special casing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "roomwatch"

// Metrics holds the collectors shared by all clients in a process.
type Metrics struct {
	connectsTotal     *prometheus.CounterVec
	dialErrorsTotal   *prometheus.CounterVec
	closesTotal       *prometheus.CounterVec
	framesTotal       *prometheus.CounterVec
	decodeErrorsTotal *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	activeConns       *prometheus.GaugeVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them through the default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connects_total",
			Help:      "Successful TCP connections to the broadcast server",
		}, []string{"kind"}),

		dialErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dial_errors_total",
			Help:      "Failed connection attempts",
		}, []string{"kind"}),

		closesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "closes_total",
			Help:      "Connection closes by reason (caller, policy, socket, idle, decode, forced)",
		}, []string{"kind", "reason"}),

		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_total",
			Help:      "Frames received by operation",
		}, []string{"op"}),

		decodeErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_errors_total",
			Help:      "Frame and notification decode failures",
		}, []string{"stage"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Events emitted by monitors",
		}, []string{"kind", "name"}),

		activeConns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Currently connected rooms",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Connected(kind string) {
	if m == nil {
		return
	}
	m.connectsTotal.WithLabelValues(kind).Inc()
	m.activeConns.WithLabelValues(kind).Inc()
}

func (m *Metrics) Disconnected(kind, reason string) {
	if m == nil {
		return
	}
	m.activeConns.WithLabelValues(kind).Dec()
	m.closesTotal.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) DialFailed(kind string) {
	if m == nil {
		return
	}
	m.dialErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) Frame(op string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(op).Inc()
}

// DecodeError counts a failure at stage "frame" or "notification".
func (m *Metrics) DecodeError(stage string) {
	if m == nil {
		return
	}
	m.decodeErrorsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) Event(kind, name string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind, name).Inc()
}
