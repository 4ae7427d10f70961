package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/sentinel/internal/throttle"
)

// ActionType identifies the authentication action being gated
type ActionType string

const (
	ActionSignIn        ActionType = "signin"
	ActionSignUp        ActionType = "signup"
	ActionResetPassword ActionType = "reset_password"
)

// ActionTypes lists the built-in action types
func ActionTypes() []ActionType {
	return []ActionType{ActionSignIn, ActionSignUp, ActionResetPassword}
}

// ParseActionType normalizes a raw action name. Any non-empty name of
// lowercase letters, digits and underscores is accepted; actions without a
// configured rule are simply never throttled.
func ParseActionType(raw string) (ActionType, error) {
	a := strings.ToLower(strings.TrimSpace(raw))
	if a == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidActionType)
	}
	for _, r := range a {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", fmt.Errorf("%w: %q", ErrInvalidActionType, raw)
		}
	}
	return ActionType(a), nil
}

// KeyScope says whether an attempt key is an IP address or an account identity
type KeyScope string

const (
	ScopeIP       KeyScope = "ip"
	ScopeIdentity KeyScope = "identity"
)

// AttemptKey is the value attempts are counted against. IP and identity keys
// are never combined; each is tracked on its own.
type AttemptKey struct {
	Scope KeyScope `json:"scope"`
	Value string   `json:"value"`
}

// IPKey builds an IP-scoped key
func IPKey(ip string) AttemptKey {
	return AttemptKey{Scope: ScopeIP, Value: strings.TrimSpace(ip)}
}

// IdentityKey builds an identity-scoped key from a normalized identity
func IdentityKey(identity string) AttemptKey {
	return AttemptKey{Scope: ScopeIdentity, Value: NormalizeIdentity(identity)}
}

// String renders the key as "scope:value"
func (k AttemptKey) String() string {
	return string(k.Scope) + ":" + k.Value
}

// NormalizeIdentity lowercases and trims an identity such as an email address
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// AttemptEvent is a single authentication attempt. Events are append-only.
type AttemptEvent struct {
	ID        string     `db:"id" json:"id,omitempty"`
	Key       AttemptKey `db:"-" json:"key"`
	Action    ActionType `db:"action_type" json:"action"`
	Success   bool       `db:"success" json:"success"`
	UserAgent string     `db:"user_agent" json:"user_agent,omitempty"`
	Timestamp time.Time  `db:"attempted_at" json:"timestamp"`
}

// OccurredAt implements throttle.Record
func (e *AttemptEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// Qualifies implements throttle.Record. Only failures count toward a limit.
func (e *AttemptEvent) Qualifies() bool {
	return !e.Success
}

// AttemptRule is the per-action throttle configuration. Immutable at runtime.
type AttemptRule struct {
	MaxAttempts          int `yaml:"max_attempts" json:"max_attempts"`
	WindowMinutes        int `yaml:"window_minutes" json:"window_minutes"`
	BlockDurationMinutes int `yaml:"block_duration_minutes" json:"block_duration_minutes"`
}

// Window returns the counting window as a duration
func (r AttemptRule) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

// BlockDuration returns the block length as a duration
func (r AttemptRule) BlockDuration() time.Duration {
	return time.Duration(r.BlockDurationMinutes) * time.Minute
}

// Policy converts the rule to the engine's sliding-window policy
func (r AttemptRule) Policy() throttle.SlidingWindow {
	return throttle.SlidingWindow{
		Window:        r.Window(),
		MaxCount:      r.MaxAttempts,
		BlockDuration: r.BlockDuration(),
	}
}

// DefaultAttemptRules returns the built-in rules. Actions missing from the
// map are not throttled.
func DefaultAttemptRules() map[ActionType]AttemptRule {
	return map[ActionType]AttemptRule{
		ActionSignIn:        {MaxAttempts: 5, WindowMinutes: 15, BlockDurationMinutes: 30},
		ActionSignUp:        {MaxAttempts: 3, WindowMinutes: 60, BlockDurationMinutes: 60},
		ActionResetPassword: {MaxAttempts: 3, WindowMinutes: 60, BlockDurationMinutes: 60},
	}
}

// AttemptRequest describes an attempt the caller is about to make
type AttemptRequest struct {
	Action    ActionType
	IP        string
	Identity  string
	UserAgent string
}

// Keys returns the keys the request is checked against, IP first.
// Empty values are skipped.
func (r AttemptRequest) Keys() []AttemptKey {
	keys := make([]AttemptKey, 0, 2)
	if ip := strings.TrimSpace(r.IP); ip != "" {
		keys = append(keys, IPKey(ip))
	}
	if id := NormalizeIdentity(r.Identity); id != "" {
		keys = append(keys, IdentityKey(id))
	}
	return keys
}

// GateDecision is what the attempt gate returns to callers
type GateDecision struct {
	Allowed           bool     `json:"allowed"`
	RetryAfterSeconds int      `json:"retry_after_seconds,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	Scope             KeyScope `json:"scope,omitempty"`
	Message           string   `json:"message,omitempty"`
}
