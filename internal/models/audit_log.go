package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types for audit logging
const (
	AuditEventAttemptDenied   = "attempt_denied"
	AuditEventAttemptRecorded = "attempt_recorded"
	AuditEventAlertFired      = "alert_fired"
	AuditEventAlertMuted      = "alert_muted"
)

// AuditLog is a persisted security audit record
type AuditLog struct {
	ID        uuid.UUID     `db:"id"`
	EventType string        `db:"event_type"`
	Action    ActionType    `db:"action"`
	IPAddress *string       `db:"ip_address"`
	Identity  *string       `db:"identity"`
	UserAgent *string       `db:"user_agent"`
	Success   bool          `db:"success"`
	Metadata  AuditMetadata `db:"metadata"`
	CreatedAt time.Time     `db:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(am))
}

// NewAttemptAuditMetadata builds metadata for an attempt audit record.
// Empty optional values are omitted.
func NewAttemptAuditMetadata(retryAfterSeconds int, scope KeyScope) AuditMetadata {
	metadata := AuditMetadata{}
	if retryAfterSeconds > 0 {
		metadata["retry_after_seconds"] = retryAfterSeconds
	}
	if scope != "" {
		metadata["scope"] = string(scope)
	}
	return metadata
}
