package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/BradenHooton/sentinel/internal/models"
	pkglogger "github.com/BradenHooton/sentinel/pkg/logger"
)

// AuditLogRepository persists audit records
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByIdentity(ctx context.Context, identity string, limit int, offset int) ([]*models.AuditLog, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	repo   AuditLogRepository
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
}

// NewAuditService creates a new AuditService. A nil repo logs only.
func NewAuditService(repo AuditLogRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		audit:  pkglogger.NewAuditLogger(logger),
		logger: logger,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Record logs the outcome of an attempt. It implements AuditSink.
func (s *AuditService) Record(ctx context.Context, ip, identity string, action models.ActionType, success bool, userAgent string) {
	s.audit.LogAttempt(ctx, pkglogger.AuditEvent{
		EventType: models.AuditEventAttemptRecorded,
		Action:    string(action),
		IPAddress: ip,
		Identity:  identity,
		UserAgent: userAgent,
		Success:   success,
	})

	s.persist(ctx, &models.AuditLog{
		EventType: models.AuditEventAttemptRecorded,
		Action:    action,
		IPAddress: optional(ip),
		Identity:  optional(identity),
		UserAgent: optional(userAgent),
		Success:   success,
	})
}

// RecordDenial logs a throttled attempt with its retry-after. It implements DenialAuditor.
func (s *AuditService) RecordDenial(ctx context.Context, req models.AttemptRequest, decision models.GateDecision) {
	identity := models.NormalizeIdentity(req.Identity)

	s.audit.LogAttempt(ctx, pkglogger.AuditEvent{
		EventType: models.AuditEventAttemptDenied,
		Action:    string(req.Action),
		IPAddress: req.IP,
		Identity:  identity,
		UserAgent: req.UserAgent,
		Success:   false,
		Metadata: map[string]string{
			"reason":              decision.Reason,
			"retry_after_seconds": strconv.Itoa(decision.RetryAfterSeconds),
		},
	})

	s.persist(ctx, &models.AuditLog{
		EventType: models.AuditEventAttemptDenied,
		Action:    req.Action,
		IPAddress: optional(req.IP),
		Identity:  optional(identity),
		UserAgent: optional(req.UserAgent),
		Success:   false,
		Metadata:  models.NewAttemptAuditMetadata(decision.RetryAfterSeconds, decision.Scope),
	})
}

// RecordAlert logs an alert lifecycle event. It implements AlertAuditSink.
func (s *AuditService) RecordAlert(ctx context.Context, eventType string, alertType models.AlertType, metadata models.AuditMetadata) {
	fields := make(map[string]string, len(metadata))
	for k, v := range metadata {
		fields[k] = fmt.Sprint(v)
	}
	s.audit.LogAlertAction(ctx, eventType, string(alertType), fields)

	if metadata == nil {
		metadata = models.AuditMetadata{}
	}
	metadata["alert_type"] = string(alertType)

	s.persist(ctx, &models.AuditLog{
		EventType: eventType,
		Success:   true,
		Metadata:  metadata,
	})
}

// persist writes the record to the repository. Failures are logged only.
func (s *AuditService) persist(ctx context.Context, log *models.AuditLog) {
	if s.repo == nil {
		return
	}

	if _, err := s.repo.Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", log.EventType),
			slog.Any("error", err),
		)
	}
}

// GetIdentityAuditTrail retrieves the audit trail for a normalized identity
func (s *AuditService) GetIdentityAuditTrail(ctx context.Context, identity string, limit int, offset int) ([]*models.AuditLog, error) {
	if s.repo == nil {
		return []*models.AuditLog{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.repo.GetByIdentity(ctx, models.NormalizeIdentity(identity), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity audit trail: %w", err)
	}

	return logs, nil
}
