package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/google/uuid"
)

// MemoryAttemptStore keeps attempt events in process memory. Used for the
// memory backend and in tests.
type MemoryAttemptStore struct {
	mu     sync.RWMutex
	events map[string][]*models.AttemptEvent
}

// NewMemoryAttemptStore creates an empty MemoryAttemptStore
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{events: make(map[string][]*models.AttemptEvent)}
}

func memoryAttemptKey(key models.AttemptKey, action models.ActionType) string {
	return string(action) + "|" + key.String()
}

// Append records an attempt event
func (s *MemoryAttemptStore) Append(_ context.Context, event *models.AttemptEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	stored := *event

	s.mu.Lock()
	defer s.mu.Unlock()

	k := memoryAttemptKey(event.Key, event.Action)
	s.events[k] = append(s.events[k], &stored)
	return nil
}

// Query returns copies of the matching events at or after since, most recent first
func (s *MemoryAttemptStore) Query(_ context.Context, key models.AttemptKey, action models.ActionType, since time.Time) ([]*models.AttemptEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AttemptEvent, 0)
	for _, e := range s.events[memoryAttemptKey(key, action)] {
		if e.Timestamp.Before(since) {
			continue
		}
		c := *e
		out = append(out, &c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// DeleteOlderThan removes events recorded before cutoff
func (s *MemoryAttemptStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k, list := range s.events {
		kept := list[:0]
		for _, e := range list {
			if e.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.events, k)
			continue
		}
		s.events[k] = kept
	}
	return removed, nil
}

// MemoryAlertRuleStore keeps alert rules in process memory
type MemoryAlertRuleStore struct {
	mu    sync.RWMutex
	rules map[models.AlertType]*models.AlertRule
}

// NewMemoryAlertRuleStore creates an empty MemoryAlertRuleStore
func NewMemoryAlertRuleStore() *MemoryAlertRuleStore {
	return &MemoryAlertRuleStore{rules: make(map[models.AlertType]*models.AlertRule)}
}

// GetRule returns a copy of the stored rule or models.ErrNotFound
func (s *MemoryAlertRuleStore) GetRule(_ context.Context, alertType models.AlertType) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[alertType]
	if !ok {
		return nil, models.ErrNotFound
	}
	return rule.Clone(), nil
}

// ListRules returns copies of every stored rule ordered by type
func (s *MemoryAlertRuleStore) ListRules(_ context.Context) ([]*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AlertRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// SaveRule stores a copy of rule
func (s *MemoryAlertRuleStore) SaveRule(_ context.Context, rule *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[rule.Type] = rule.Clone()
	return nil
}

// TouchTriggered sets the last trigger time of alertType, leaving other fields alone
func (s *MemoryAlertRuleStore) TouchTriggered(_ context.Context, alertType models.AlertType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[alertType]
	if !ok {
		rule = &models.AlertRule{Type: alertType}
		s.rules[alertType] = rule
	}
	rule.LastTriggered = &at
	return nil
}

// MemoryAlertHistoryStore keeps fired alerts in process memory, oldest first
type MemoryAlertHistoryStore struct {
	mu     sync.RWMutex
	events []*models.AlertEvent
}

// NewMemoryAlertHistoryStore creates an empty MemoryAlertHistoryStore
func NewMemoryAlertHistoryStore() *MemoryAlertHistoryStore {
	return &MemoryAlertHistoryStore{}
}

func cloneAlertEvent(e *models.AlertEvent) *models.AlertEvent {
	c := *e
	if e.Data != nil {
		c.Data = make(models.AlertData, len(e.Data))
		for k, v := range e.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// Append stores event and drops the oldest entries beyond limit
func (s *MemoryAlertHistoryStore) Append(_ context.Context, event *models.AlertEvent, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, cloneAlertEvent(event))
	if limit > 0 && len(s.events) > limit {
		s.events = append([]*models.AlertEvent(nil), s.events[len(s.events)-limit:]...)
	}
	return nil
}

// List returns up to limit events, newest first
func (s *MemoryAlertHistoryStore) List(_ context.Context, limit int) ([]*models.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AlertEvent, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneAlertEvent(s.events[i]))
	}
	return out, nil
}

// Acknowledge marks an event acknowledged or returns models.ErrNotFound
func (s *MemoryAlertHistoryStore) Acknowledge(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.ID == id {
			e.Acknowledged = true
			return nil
		}
	}
	return models.ErrNotFound
}

// Clear removes all history
func (s *MemoryAlertHistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	return nil
}
