package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType string
	Action    string
	IPAddress string
	Identity  string
	UserAgent string
	Success   bool
	Metadata  map[string]string
}

// AuditLogger writes structured audit lines. Identities are always masked.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogAttempt logs a throttled authentication attempt or its outcome
func (al *AuditLogger) LogAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "attempt"),
		slog.String("event_type", event.EventType),
		slog.String("action", event.Action),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", SanitizedIdentity(event.Identity)))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	}
}

// LogAlertAction logs alert lifecycle actions such as a fired or muted alert
func (al *AuditLogger) LogAlertAction(ctx context.Context, eventType, alertType string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "alert"),
		slog.String("event_type", eventType),
		slog.String("alert_type", alertType),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
