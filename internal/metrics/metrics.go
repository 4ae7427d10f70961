// Package metrics exposes Prometheus counters for gate decisions and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinel"

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	attemptDecisions   *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
	alertsTriggered    *prometheus.CounterVec
	alertsSuppressed   *prometheus.CounterVec
	notificationErrors *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers all collectors, including Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attemptDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_decisions_total",
			Help:      "Attempt gate decisions by action, outcome and denying scope.",
		}, []string{"action", "decision", "scope"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Store failures absorbed by the gates.",
		}, []string{"store", "op"}),
		alertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "Alerts that fired.",
		}, []string{"type"}),
		alertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Alert triggers that did not fire, by reason.",
		}, []string{"type", "reason"}),
		notificationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Failed alert notification deliveries.",
		}, []string{"type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.attemptDecisions,
		m.storeErrors,
		m.alertsTriggered,
		m.alertsSuppressed,
		m.notificationErrors,
		m.httpDuration,
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AttemptDecision counts an attempt gate decision
func (m *Metrics) AttemptDecision(action models.ActionType, allowed bool, scope models.KeyScope) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.attemptDecisions.WithLabelValues(string(action), decision, string(scope)).Inc()
}

// StoreError counts a store failure
func (m *Metrics) StoreError(store, op string) {
	m.storeErrors.WithLabelValues(store, op).Inc()
}

// AlertTriggered counts a fired alert
func (m *Metrics) AlertTriggered(alertType models.AlertType) {
	m.alertsTriggered.WithLabelValues(string(alertType)).Inc()
}

// AlertSuppressed counts a trigger that did not fire
func (m *Metrics) AlertSuppressed(alertType models.AlertType, reason string) {
	m.alertsSuppressed.WithLabelValues(string(alertType), reason).Inc()
}

// NotificationFailed counts a failed notification delivery
func (m *Metrics) NotificationFailed(alertType models.AlertType) {
	m.notificationErrors.WithLabelValues(string(alertType)).Inc()
}

// ObserveHTTP records the latency of one request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
