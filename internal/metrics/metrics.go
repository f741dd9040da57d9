// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "budgetwise"

// Notification outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics groups the collectors used by the realtime and ledger packages.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Connections   prometheus.Gauge
	Notifications *prometheus.CounterVec
	LedgerOps     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "socket_connections",
			Help:      "Participants with a registered live socket.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Group event deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by name and result.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(m.Connections, m.Notifications, m.LedgerOps)
	return m
}

// SetConnections records the number of registered sockets.
func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(n))
}

// Notification counts one delivery attempt.
func (m *Metrics) Notification(eventType, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(eventType, outcome).Inc()
}

// LedgerOp counts one ledger operation; err decides the result label.
func (m *Metrics) LedgerOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LedgerOps.WithLabelValues(op, result).Inc()
}
