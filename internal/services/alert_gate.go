package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/throttle"
	"github.com/google/uuid"
)

// AlertRuleStore persists per-type alert rules. Missing rules return models.ErrNotFound.
type AlertRuleStore interface {
	GetRule(ctx context.Context, alertType models.AlertType) (*models.AlertRule, error)
	ListRules(ctx context.Context) ([]*models.AlertRule, error)
	SaveRule(ctx context.Context, rule *models.AlertRule) error
	// TouchTriggered sets only the last trigger time, creating the rule if needed
	TouchTriggered(ctx context.Context, alertType models.AlertType, at time.Time) error
}

// AlertHistoryStore persists fired alerts, keeping at most limit entries
type AlertHistoryStore interface {
	Append(ctx context.Context, event *models.AlertEvent, limit int) error
	List(ctx context.Context, limit int) ([]*models.AlertEvent, error)
	Acknowledge(ctx context.Context, id uuid.UUID) error
	Clear(ctx context.Context) error
}

// NotificationSink delivers alert notifications. Delivery is best effort.
type NotificationSink interface {
	Notify(ctx context.Context, n models.Notification) error
}

// AlertAuditSink records alert lifecycle events
type AlertAuditSink interface {
	RecordAlert(ctx context.Context, eventType string, alertType models.AlertType, metadata models.AuditMetadata)
}

// AlertGate fires at most one notification per alert type per cooldown period
type AlertGate struct {
	rules    AlertRuleStore
	history  AlertHistoryStore
	sink     NotificationSink
	defaults models.AlertDefaults
	audit    AlertAuditSink
	logger   *slog.Logger
	metrics  GateMetrics
	now      func() time.Time

	// serializes read-modify-write of rules within this process
	mu sync.Mutex
}

// NewAlertGate creates an AlertGate. Alert types missing from defaults use the
// built-in defaults.
func NewAlertGate(rules AlertRuleStore, history AlertHistoryStore, sink NotificationSink, defaults models.AlertDefaults, logger *slog.Logger, opts ...GateOption) *AlertGate {
	o := buildGateOptions(opts)

	merged := models.BuiltinAlertDefaults()
	for t, d := range defaults {
		merged[t] = d
	}

	return &AlertGate{
		rules:    rules,
		history:  history,
		sink:     sink,
		defaults: merged,
		audit:    o.alertAudit,
		logger:   logger,
		metrics:  o.metrics,
		now:      o.now,
	}
}

// storedRule returns the persisted rule for t, or an empty rule of that type
// when none is stored
func (g *AlertGate) storedRule(ctx context.Context, t models.AlertType) (*models.AlertRule, error) {
	rule, err := g.rules.GetRule(ctx, t)
	if errors.Is(err, models.ErrNotFound) {
		return &models.AlertRule{Type: t}, nil
	}
	if err != nil {
		return nil, err
	}
	rule.Type = t
	return rule, nil
}

func (g *AlertGate) effective(rule *models.AlertRule) *models.AlertRule {
	merged := rule.Clone()
	if err := merged.MergeDefaults(g.defaults); err != nil {
		g.logger.Error("no defaults for alert type", slog.String("alert_type", string(rule.Type)))
	}
	return merged
}

// TryTrigger fires an alert of type t unless the rule is disabled or still in
// cooldown. It reports whether the alert fired. Store and notification
// failures never change the result.
func (g *AlertGate) TryTrigger(ctx context.Context, t models.AlertType, message string, severity models.Severity, data models.AlertData) bool {
	alertType, err := models.ParseAlertType(string(t))
	if err != nil {
		g.logger.ErrorContext(ctx, "rejected alert trigger", slog.Any("error", err))
		g.metrics.AlertSuppressed(t, "invalid_type")
		return false
	}

	sev, err := models.ParseSeverity(string(severity))
	if err != nil {
		g.logger.ErrorContext(ctx, "rejected alert trigger",
			slog.String("alert_type", string(alertType)),
			slog.Any("error", err),
		)
		g.metrics.AlertSuppressed(alertType, "invalid_severity")
		return false
	}

	event, reason := g.fire(ctx, alertType, message, sev, data)
	if event == nil {
		g.metrics.AlertSuppressed(alertType, reason)
		return false
	}

	g.metrics.AlertTriggered(alertType)
	g.logger.InfoContext(ctx, "alert fired",
		slog.String("alert_type", string(alertType)),
		slog.String("alert_id", event.ID.String()),
		slog.String("severity", string(sev)),
	)

	if err := g.sink.Notify(ctx, models.NewNotification(event)); err != nil {
		g.logger.WarnContext(ctx, "alert notification failed",
			slog.String("alert_type", string(alertType)),
			slog.Any("error", err),
		)
		g.metrics.NotificationFailed(alertType)
	}

	g.recordAudit(ctx, models.AuditEventAlertFired, alertType, models.AuditMetadata{
		"alert_id": event.ID.String(),
		"severity": string(sev),
	})

	return true
}

// fire runs the cooldown decision and, when allowed, stores the event and the
// new trigger time. A nil event comes with the suppression reason.
func (g *AlertGate) fire(ctx context.Context, t models.AlertType, message string, severity models.Severity, data models.AlertData) (*models.AlertEvent, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	stored, err := g.storedRule(ctx, t)
	if err != nil {
		g.logger.ErrorContext(ctx, "alert rule unavailable, using defaults",
			slog.String("alert_type", string(t)),
			slog.Any("error", err),
		)
		g.metrics.StoreError("alert_rules", "get")
		stored = &models.AlertRule{Type: t}
	}
	rule := g.effective(stored)

	if !rule.IsEnabled() {
		return nil, "disabled"
	}

	decision := throttle.Cooldown{Period: rule.Cooldown()}.Decide(rule.LastTriggered, now)
	if !decision.Allowed {
		g.logger.DebugContext(ctx, "alert suppressed by cooldown",
			slog.String("alert_type", string(t)),
			slog.Int("retry_after_seconds", decision.RetryAfterSeconds()),
		)
		return nil, "cooldown"
	}

	event := &models.AlertEvent{
		ID:        uuid.New(),
		Type:      t,
		Timestamp: now,
		Message:   message,
		Severity:  severity,
		Data:      data,
	}

	if err := g.history.Append(ctx, event, models.MaxAlertHistory); err != nil {
		g.logger.ErrorContext(ctx, "failed to store alert event",
			slog.String("alert_type", string(t)),
			slog.Any("error", err),
		)
		g.metrics.StoreError("alert_history", "append")
	}

	// the stored rule may be a stand-in after a failed read, so only the
	// trigger time is written
	if err := g.rules.TouchTriggered(ctx, t, now); err != nil {
		g.logger.ErrorContext(ctx, "failed to store alert trigger time",
			slog.String("alert_type", string(t)),
			slog.Any("error", err),
		)
		g.metrics.StoreError("alert_rules", "touch")
	}

	return event, ""
}

// MuteAlert silences t for durationMinutes from now. The duration also becomes
// the rule's cooldown for later triggers.
func (g *AlertGate) MuteAlert(ctx context.Context, t models.AlertType, durationMinutes int) error {
	alertType, err := models.ParseAlertType(string(t))
	if err != nil {
		return err
	}
	if durationMinutes < 0 {
		return fmt.Errorf("%w: duration must not be negative", models.ErrBadRequest)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rule, err := g.storedRule(ctx, alertType)
	if err != nil {
		return fmt.Errorf("failed to load alert rule: %w", err)
	}

	now := g.now()
	rule.LastTriggered = &now
	rule.CooldownMinutes = &durationMinutes

	if err := g.rules.SaveRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save alert rule: %w", err)
	}

	g.logger.InfoContext(ctx, "alert muted",
		slog.String("alert_type", string(alertType)),
		slog.Int("duration_minutes", durationMinutes),
	)
	g.recordAudit(ctx, models.AuditEventAlertMuted, alertType, models.AuditMetadata{
		"duration_minutes": strconv.Itoa(durationMinutes),
	})

	return nil
}

// UpdateRule applies the non-nil fields of update to the rule for t and
// returns the effective rule
func (g *AlertGate) UpdateRule(ctx context.Context, t models.AlertType, update models.RuleUpdate) (*models.AlertRule, error) {
	alertType, err := models.ParseAlertType(string(t))
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rule, err := g.storedRule(ctx, alertType)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rule: %w", err)
	}

	if update.Enabled != nil {
		v := *update.Enabled
		rule.Enabled = &v
	}
	if update.Threshold != nil {
		v := *update.Threshold
		rule.Threshold = &v
	}
	if update.CooldownMinutes != nil {
		v := *update.CooldownMinutes
		rule.CooldownMinutes = &v
	}

	if err := g.rules.SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save alert rule: %w", err)
	}

	return g.effective(rule), nil
}

// Rules returns the effective rule of every alert type
func (g *AlertGate) Rules(ctx context.Context) ([]*models.AlertRule, error) {
	stored, err := g.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}

	byType := make(map[models.AlertType]*models.AlertRule, len(stored))
	for _, rule := range stored {
		byType[rule.Type] = rule
	}

	out := make([]*models.AlertRule, 0, len(models.AlertTypes()))
	for _, t := range models.AlertTypes() {
		rule, ok := byType[t]
		if !ok {
			rule = &models.AlertRule{Type: t}
		}
		out = append(out, g.effective(rule))
	}

	return out, nil
}

// History returns fired alerts, newest first
func (g *AlertGate) History(ctx context.Context) ([]*models.AlertEvent, error) {
	events, err := g.history.List(ctx, models.MaxAlertHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert history: %w", err)
	}
	return events, nil
}

// AcknowledgeAlert marks a history entry acknowledged. It has no effect on throttling.
func (g *AlertGate) AcknowledgeAlert(ctx context.Context, id uuid.UUID) error {
	return g.history.Acknowledge(ctx, id)
}

// ClearHistory removes all fired alerts. Rules and cooldowns are unaffected.
func (g *AlertGate) ClearHistory(ctx context.Context) error {
	if err := g.history.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear alert history: %w", err)
	}
	g.logger.InfoContext(ctx, "alert history cleared")
	return nil
}

func (g *AlertGate) recordAudit(ctx context.Context, eventType string, t models.AlertType, metadata models.AuditMetadata) {
	if g.audit == nil {
		return
	}
	g.audit.RecordAlert(ctx, eventType, t, metadata)
}
