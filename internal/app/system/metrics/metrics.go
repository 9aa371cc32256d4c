// Package metrics exposes Prometheus counters for the project lifecycle.
//
// A nil *Metrics is valid and records nothing, so services and tests can
// run without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collabhub"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	reg *prometheus.Registry

	operations    *prometheus.CounterVec
	casRetries    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	lockExpiries  prometheus.Counter
}

// New creates a private registry with the process and Go collectors plus
// the service counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by name and outcome kind.",
		}, []string{"operation", "outcome"}),
		casRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cas_retries_total",
			Help:      "Optimistic-concurrency retries by aggregate.",
		}, []string{"aggregate"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatches by type and outcome.",
		}, []string{"type", "outcome"}),
		lockExpiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_expiries_total",
			Help:      "Projects relocked after their edit window closed.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.casRetries,
		m.notifications,
		m.lockExpiries,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Operation records one service call. outcome is OutcomeOK or an error kind.
func (m *Metrics) Operation(name, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) CASRetry(aggregate string) {
	if m == nil {
		return
	}
	m.casRetries.WithLabelValues(aggregate).Inc()
}

func (m *Metrics) Notification(typ, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(typ, outcome).Inc()
}

func (m *Metrics) LockExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.lockExpiries.Add(float64(n))
}
