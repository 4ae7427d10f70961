package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/google/uuid"
)

var baseTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockAttemptStore implements AttemptStore for testing
type MockAttemptStore struct {
	QueryFunc  func(ctx context.Context, key models.AttemptKey, action models.ActionType, since time.Time) ([]*models.AttemptEvent, error)
	AppendFunc func(ctx context.Context, event *models.AttemptEvent) error
}

func (m *MockAttemptStore) Query(ctx context.Context, key models.AttemptKey, action models.ActionType, since time.Time) ([]*models.AttemptEvent, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, key, action, since)
	}
	return []*models.AttemptEvent{}, nil
}

func (m *MockAttemptStore) Append(ctx context.Context, event *models.AttemptEvent) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, event)
	}
	return nil
}

type auditCall struct {
	IP       string
	Identity string
	Action   models.ActionType
	Success  bool
}

// recordingAudit implements AuditSink and keeps every call
type recordingAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAudit) Record(_ context.Context, ip, identity string, action models.ActionType, success bool, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{IP: ip, Identity: identity, Action: action, Success: success})
}

func (a *recordingAudit) Calls() []auditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auditCall(nil), a.calls...)
}

// recordingDenialAudit additionally implements DenialAuditor
type recordingDenialAudit struct {
	recordingAudit
	denials []models.GateDecision
}

func (a *recordingDenialAudit) RecordDenial(_ context.Context, _ models.AttemptRequest, decision models.GateDecision) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denials = append(a.denials, decision)
}

// MockAlertRuleStore implements AlertRuleStore for testing
type MockAlertRuleStore struct {
	GetRuleFunc   func(ctx context.Context, alertType models.AlertType) (*models.AlertRule, error)
	ListRulesFunc func(ctx context.Context) ([]*models.AlertRule, error)
	SaveRuleFunc  func(ctx context.Context, rule *models.AlertRule) error
	TouchFunc     func(ctx context.Context, alertType models.AlertType, at time.Time) error
}

func (m *MockAlertRuleStore) GetRule(ctx context.Context, alertType models.AlertType) (*models.AlertRule, error) {
	if m.GetRuleFunc != nil {
		return m.GetRuleFunc(ctx, alertType)
	}
	return nil, models.ErrNotFound
}

func (m *MockAlertRuleStore) ListRules(ctx context.Context) ([]*models.AlertRule, error) {
	if m.ListRulesFunc != nil {
		return m.ListRulesFunc(ctx)
	}
	return []*models.AlertRule{}, nil
}

func (m *MockAlertRuleStore) SaveRule(ctx context.Context, rule *models.AlertRule) error {
	if m.SaveRuleFunc != nil {
		return m.SaveRuleFunc(ctx, rule)
	}
	return nil
}

func (m *MockAlertRuleStore) TouchTriggered(ctx context.Context, alertType models.AlertType, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, alertType, at)
	}
	return nil
}

// MockNotificationSink implements NotificationSink for testing
type MockNotificationSink struct {
	mu            sync.Mutex
	NotifyFunc    func(ctx context.Context, n models.Notification) error
	notifications []models.Notification
}

func (m *MockNotificationSink) Notify(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, n)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

func (m *MockNotificationSink) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.notifications...)
}

// countingMetrics implements GateMetrics and counts calls
type countingMetrics struct {
	mu            sync.Mutex
	allowed       int
	denied        int
	storeErrors   map[string]int
	triggered     int
	suppressed    map[string]int
	notifyFailure int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{storeErrors: map[string]int{}, suppressed: map[string]int{}}
}

func (m *countingMetrics) AttemptDecision(_ models.ActionType, allowed bool, _ models.KeyScope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if allowed {
		m.allowed++
	} else {
		m.denied++
	}
}

func (m *countingMetrics) StoreError(store, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErrors[store+"."+op]++
}

func (m *countingMetrics) AlertTriggered(models.AlertType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered++
}

func (m *countingMetrics) AlertSuppressed(_ models.AlertType, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[reason]++
}

func (m *countingMetrics) NotificationFailed(models.AlertType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyFailure++
}

func mustUUID() uuid.UUID {
	return uuid.New()
}
