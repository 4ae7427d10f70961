package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxAlertHistory bounds the number of alert events kept in history
const MaxAlertHistory = 100

// AlertType identifies a detector condition
type AlertType string

const (
	AlertHighFalsePositiveRate AlertType = "HIGH_FALSE_POSITIVE_RATE"
	AlertHighBotActivity       AlertType = "HIGH_BOT_ACTIVITY"
	AlertThresholdDrift        AlertType = "THRESHOLD_DRIFT"
	AlertAnomalyDetected       AlertType = "ANOMALY_DETECTED"
)

// AlertTypes lists every built-in alert type in a stable order
func AlertTypes() []AlertType {
	return []AlertType{
		AlertHighFalsePositiveRate,
		AlertHighBotActivity,
		AlertThresholdDrift,
		AlertAnomalyDetected,
	}
}

// ParseAlertType validates a raw alert type (case-insensitive)
func ParseAlertType(raw string) (AlertType, error) {
	t := AlertType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AlertTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAlertType, raw)
}

// Title returns a human-readable title for notifications
func (t AlertType) Title() string {
	switch t {
	case AlertHighFalsePositiveRate:
		return "High false-positive rate"
	case AlertHighBotActivity:
		return "High bot activity"
	case AlertThresholdDrift:
		return "Threshold drift"
	case AlertAnomalyDetected:
		return "Anomaly detected"
	default:
		return string(t)
	}
}

// Severity of an alert event
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity validates a raw severity, defaulting empty input to info
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return SeverityInfo, nil
	case SeverityInfo, SeverityWarning, SeverityError:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
	}
}

// Rank orders severities from info (0) to error (2)
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	default:
		return 0
	}
}

// AlertRule is the per-type alert configuration. Pointer fields are optional
// so that partially stored rules can be merged with the built-in defaults.
type AlertRule struct {
	Type            AlertType  `db:"alert_type" json:"type"`
	Enabled         *bool      `db:"enabled" json:"enabled,omitempty"`
	Threshold       *float64   `db:"threshold" json:"threshold,omitempty"`
	CooldownMinutes *int       `db:"cooldown_minutes" json:"cooldown_minutes,omitempty"`
	LastTriggered   *time.Time `db:"last_triggered" json:"last_triggered,omitempty"`
}

// AlertDefault is the built-in threshold and cooldown of one alert type
type AlertDefault struct {
	Threshold       float64 `yaml:"threshold" json:"threshold"`
	CooldownMinutes int     `yaml:"cooldown_minutes" json:"cooldown_minutes"`
}

// AlertDefaults maps each alert type to its defaults
type AlertDefaults map[AlertType]AlertDefault

// BuiltinAlertDefaults returns a fresh copy of the built-in defaults
func BuiltinAlertDefaults() AlertDefaults {
	return AlertDefaults{
		AlertHighFalsePositiveRate: {Threshold: 10, CooldownMinutes: 60},
		AlertHighBotActivity:       {Threshold: 200, CooldownMinutes: 60},
		AlertThresholdDrift:        {Threshold: 80, CooldownMinutes: 240},
		AlertAnomalyDetected:       {Threshold: 50, CooldownMinutes: 120},
	}
}

// Rule returns the default rule for t, enabled and never triggered
func (d AlertDefaults) Rule(t AlertType) (*AlertRule, error) {
	def, ok := d[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAlertType, t)
	}
	enabled := true
	threshold := def.Threshold
	cooldown := def.CooldownMinutes
	return &AlertRule{
		Type:            t,
		Enabled:         &enabled,
		Threshold:       &threshold,
		CooldownMinutes: &cooldown,
	}, nil
}

// Rules returns the default rule of every built-in type
func (d AlertDefaults) Rules() []*AlertRule {
	rules := make([]*AlertRule, 0, len(d))
	for _, t := range AlertTypes() {
		if rule, err := d.Rule(t); err == nil {
			rules = append(rules, rule)
		}
	}
	return rules
}

// MergeDefaults fills missing fields from defaults for r.Type
func (r *AlertRule) MergeDefaults(defaults AlertDefaults) error {
	def, err := defaults.Rule(r.Type)
	if err != nil {
		return err
	}
	if r.Enabled == nil {
		r.Enabled = def.Enabled
	}
	if r.Threshold == nil {
		r.Threshold = def.Threshold
	}
	if r.CooldownMinutes == nil {
		r.CooldownMinutes = def.CooldownMinutes
	}
	return nil
}

// IsEnabled reports the enabled flag, treating unset as enabled
func (r *AlertRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Cooldown returns the cooldown period as a duration
func (r *AlertRule) Cooldown() time.Duration {
	if r.CooldownMinutes == nil {
		return 0
	}
	return time.Duration(*r.CooldownMinutes) * time.Minute
}

// Clone returns a deep copy so stores never share pointers with callers
func (r *AlertRule) Clone() *AlertRule {
	if r == nil {
		return nil
	}
	out := &AlertRule{Type: r.Type}
	if r.Enabled != nil {
		v := *r.Enabled
		out.Enabled = &v
	}
	if r.Threshold != nil {
		v := *r.Threshold
		out.Threshold = &v
	}
	if r.CooldownMinutes != nil {
		v := *r.CooldownMinutes
		out.CooldownMinutes = &v
	}
	if r.LastTriggered != nil {
		v := *r.LastTriggered
		out.LastTriggered = &v
	}
	return out
}

// RuleUpdate carries the caller-editable fields of an alert rule
type RuleUpdate struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	CooldownMinutes *int     `json:"cooldown_minutes,omitempty" validate:"omitempty,gte=0"`
}

// AlertEvent is a fired alert kept in history
type AlertEvent struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Type         AlertType `db:"alert_type" json:"type"`
	Timestamp    time.Time `db:"occurred_at" json:"timestamp"`
	Message      string    `db:"message" json:"message"`
	Severity     Severity  `db:"severity" json:"severity"`
	Acknowledged bool      `db:"acknowledged" json:"acknowledged"`
	Data         AlertData `db:"data" json:"data,omitempty"`
}

// AlertData holds arbitrary diagnostic context attached by detectors
type AlertData map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (d *AlertData) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = nil
		return nil
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
	*d = AlertData(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d AlertData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(d))
}

// Notification is the presentation handed to a notification sink
type Notification struct {
	AlertID            uuid.UUID `json:"alert_id"`
	Type               AlertType `json:"type"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Severity           Severity  `json:"severity"`
	RequireInteraction bool      `json:"require_interaction"`
	Timestamp          time.Time `json:"timestamp"`
	Data               AlertData `json:"data,omitempty"`
}

// NewNotification derives the notification for a fired alert. Error severity
// requires explicit interaction; lower severities auto-dismiss.
func NewNotification(event *AlertEvent) Notification {
	return Notification{
		AlertID:            event.ID,
		Type:               event.Type,
		Title:              event.Type.Title(),
		Body:               event.Message,
		Severity:           event.Severity,
		RequireInteraction: event.Severity == SeverityError,
		Timestamp:          event.Timestamp,
		Data:               event.Data,
	}
}
