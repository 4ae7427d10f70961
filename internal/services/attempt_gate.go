package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/throttle"
	pkglogger "github.com/BradenHooton/sentinel/pkg/logger"
)

// Denial reasons returned in GateDecision.Reason
const (
	ReasonIPLimited            = "ip_rate_limited"
	ReasonIdentityLimited      = "identity_rate_limited"
	ReasonIPAndIdentityLimited = "ip_and_identity_rate_limited"
)

// AttemptStore is the append-only attempt log
type AttemptStore interface {
	// Query returns events for key and action at or after since, most recent first
	Query(ctx context.Context, key models.AttemptKey, action models.ActionType, since time.Time) ([]*models.AttemptEvent, error)
	Append(ctx context.Context, event *models.AttemptEvent) error
}

// AuditSink records attempt outcomes. Implementations handle their own failures.
type AuditSink interface {
	Record(ctx context.Context, ip, identity string, action models.ActionType, success bool, userAgent string)
}

// DenialAuditor is implemented by audit sinks that record denials separately
// from attempt outcomes
type DenialAuditor interface {
	RecordDenial(ctx context.Context, req models.AttemptRequest, decision models.GateDecision)
}

// AttemptGate throttles authentication attempts per IP and per identity
type AttemptGate struct {
	store   AttemptStore
	audit   AuditSink
	rules   map[models.ActionType]models.AttemptRule
	logger  *slog.Logger
	metrics GateMetrics
	now     func() time.Time
}

// NewAttemptGate creates an AttemptGate. Actions without a rule are never throttled.
func NewAttemptGate(store AttemptStore, audit AuditSink, rules map[models.ActionType]models.AttemptRule, logger *slog.Logger, opts ...GateOption) *AttemptGate {
	o := buildGateOptions(opts)

	copied := make(map[models.ActionType]models.AttemptRule, len(rules))
	for action, rule := range rules {
		copied[action] = rule
	}

	return &AttemptGate{
		store:   store,
		audit:   audit,
		rules:   copied,
		logger:  logger,
		metrics: o.metrics,
		now:     o.now,
	}
}

// Rule returns the configured rule for action
func (g *AttemptGate) Rule(action models.ActionType) (models.AttemptRule, bool) {
	rule, ok := g.rules[action]
	return rule, ok
}

type keyDenial struct {
	scope    models.KeyScope
	decision throttle.Decision
}

// Check decides whether the attempt described by req may proceed. A key whose
// events cannot be read is treated as allowing; the other key still decides.
func (g *AttemptGate) Check(ctx context.Context, req models.AttemptRequest) models.GateDecision {
	rule, ok := g.rules[req.Action]
	if !ok {
		return models.GateDecision{Allowed: true}
	}

	now := g.now()
	policy := rule.Policy()
	since := policy.WindowStart(now)

	var denials []keyDenial
	for _, key := range req.Keys() {
		events, err := g.store.Query(ctx, key, req.Action, since)
		if err != nil {
			g.logger.ErrorContext(ctx, "attempt store query failed, skipping key",
				slog.String("action", string(req.Action)),
				slog.String("scope", string(key.Scope)),
				slog.Any("error", err),
			)
			g.metrics.StoreError("attempts", "query")
			continue
		}

		if d := throttle.Evaluate(policy, events, now); !d.Allowed {
			denials = append(denials, keyDenial{scope: key.Scope, decision: d})
		}
	}

	if len(denials) == 0 {
		g.metrics.AttemptDecision(req.Action, true, "")
		return models.GateDecision{Allowed: true}
	}

	decision := deniedDecision(denials)
	g.metrics.AttemptDecision(req.Action, false, decision.Scope)

	g.logger.WarnContext(ctx, "attempt rate limited",
		slog.String("action", string(req.Action)),
		slog.String("ip_address", req.IP),
		slog.String("identity", pkglogger.SanitizedIdentity(models.NormalizeIdentity(req.Identity))),
		slog.String("reason", decision.Reason),
		slog.Int("retry_after_seconds", decision.RetryAfterSeconds),
	)

	if auditor, ok := g.audit.(DenialAuditor); ok {
		auditor.RecordDenial(ctx, req, decision)
	} else {
		g.audit.Record(ctx, req.IP, models.NormalizeIdentity(req.Identity), req.Action, false, req.UserAgent)
	}

	return decision
}

// deniedDecision reports the longest wait among the denying keys. On a tie the
// first key, the IP, is reported.
func deniedDecision(denials []keyDenial) models.GateDecision {
	worst := denials[0]
	for _, d := range denials[1:] {
		if d.decision.RetryAfter > worst.decision.RetryAfter {
			worst = d
		}
	}

	reason := ReasonIPLimited
	switch {
	case len(denials) > 1:
		reason = ReasonIPAndIdentityLimited
	case worst.scope == models.ScopeIdentity:
		reason = ReasonIdentityLimited
	}

	seconds := worst.decision.RetryAfterSeconds()
	return models.GateDecision{
		Allowed:           false,
		RetryAfterSeconds: seconds,
		Reason:            reason,
		Scope:             worst.scope,
		Message:           throttle.FormatRetryAfter(seconds),
	}
}

// Record appends the outcome of an allowed attempt, one event per key.
// Append failures are logged and otherwise ignored.
func (g *AttemptGate) Record(ctx context.Context, req models.AttemptRequest, success bool) {
	now := g.now()

	for _, key := range req.Keys() {
		event := &models.AttemptEvent{
			Key:       key,
			Action:    req.Action,
			Success:   success,
			UserAgent: req.UserAgent,
			Timestamp: now,
		}
		if err := g.store.Append(ctx, event); err != nil {
			g.logger.ErrorContext(ctx, "failed to record attempt",
				slog.String("action", string(req.Action)),
				slog.String("scope", string(key.Scope)),
				slog.Any("error", err),
			)
			g.metrics.StoreError("attempts", "append")
		}
	}

	g.audit.Record(ctx, req.IP, models.NormalizeIdentity(req.Identity), req.Action, success, req.UserAgent)
}

// CheckAndRecord checks req and, when allowed, runs outcome and records its
// result. outcome is not called for denied attempts.
func (g *AttemptGate) CheckAndRecord(ctx context.Context, req models.AttemptRequest, outcome func(ctx context.Context) bool) models.GateDecision {
	decision := g.Check(ctx, req)
	if !decision.Allowed {
		return decision
	}

	g.Record(ctx, req, outcome(ctx))
	return decision
}
