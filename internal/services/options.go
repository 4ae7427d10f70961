package services

import (
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
)

// GateMetrics receives decision counters from the gates
type GateMetrics interface {
	AttemptDecision(action models.ActionType, allowed bool, scope models.KeyScope)
	StoreError(store, op string)
	AlertTriggered(alertType models.AlertType)
	AlertSuppressed(alertType models.AlertType, reason string)
	NotificationFailed(alertType models.AlertType)
}

type noopMetrics struct{}

func (noopMetrics) AttemptDecision(models.ActionType, bool, models.KeyScope) {}
func (noopMetrics) StoreError(string, string) {}
func (noopMetrics) AlertTriggered(models.AlertType) {}
func (noopMetrics) AlertSuppressed(models.AlertType, string) {}
func (noopMetrics) NotificationFailed(models.AlertType) {}

type gateOptions struct {
	now        func() time.Time
	metrics    GateMetrics
	alertAudit AlertAuditSink
}

// GateOption customizes a gate
type GateOption func(*gateOptions)

// WithClock replaces time.Now as the gate's time source
func WithClock(now func() time.Time) GateOption {
	return func(o *gateOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMetrics reports decisions to m
func WithMetrics(m GateMetrics) GateOption {
	return func(o *gateOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithAlertAudit records fired and muted alerts to a. Only used by AlertGate.
func WithAlertAudit(a AlertAuditSink) GateOption {
	return func(o *gateOptions) {
		o.alertAudit = a
	}
}

func buildGateOptions(opts []GateOption) gateOptions {
	o := gateOptions{now: time.Now, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
