package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/BradenHooton/sentinel/internal/handlers"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyResponse struct {
	Alerts []models.AlertEvent `json:"alerts"`
}

func (f *alertFixture) trigger(t *testing.T, body handlers.TriggerAlertRequest) handlers.TriggerAlertResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/v1/alerts/trigger", body)

	var resp handlers.TriggerAlertResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	return resp
}

func (f *alertFixture) history(t *testing.T) []models.AlertEvent {
	t.Helper()
	w := f.do(t, http.MethodGet, "/v1/alerts/history", nil)

	var resp historyResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	return resp.Alerts
}

func TestTrigger_FiresOnceWithinCooldown(t *testing.T) {
	f := newAlertFixture(t)
	body := handlers.TriggerAlertRequest{
		Type:     "HIGH_BOT_ACTIVITY",
		Message:  "bot traffic spike",
		Severity: "error",
		Data:     models.AlertData{"rate": 250.0},
	}

	assert.True(t, f.trigger(t, body).Fired)
	assert.False(t, f.trigger(t, body).Fired)

	require.Len(t, f.sink.sent, 1)
	assert.True(t, f.sink.sent[0].RequireInteraction)

	f.clock.Advance(time.Hour)
	assert.True(t, f.trigger(t, body).Fired)
}

func TestTrigger_DefaultsToInfoSeverity(t *testing.T) {
	f := newAlertFixture(t)

	require.True(t, f.trigger(t, handlers.TriggerAlertRequest{Type: "anomaly_detected", Message: "odd"}).Fired)

	events := f.history(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.SeverityInfo, events[0].Severity)
	assert.Equal(t, models.AlertAnomalyDetected, events[0].Type)
}

func TestTrigger_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown type", handlers.TriggerAlertRequest{Type: "NOT_A_TYPE", Message: "m"}},
		{"invalid severity", handlers.TriggerAlertRequest{Type: "HIGH_BOT_ACTIVITY", Message: "m", Severity: "critical"}},
		{"missing message", handlers.TriggerAlertRequest{Type: "HIGH_BOT_ACTIVITY"}},
		{"missing type", handlers.TriggerAlertRequest{Message: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAlertFixture(t)

			w := f.do(t, http.MethodPost, "/v1/alerts/trigger", tt.body)

			AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
			assert.Empty(t, f.sink.sent)
		})
	}
}

func TestMute_SuppressesTrigger(t *testing.T) {
	f := newAlertFixture(t)

	w := f.do(t, http.MethodPost, "/v1/alerts/rules/THRESHOLD_DRIFT/mute", handlers.MuteAlertRequest{DurationMinutes: 30})
	require.Equal(t, http.StatusNoContent, w.Code)

	body := handlers.TriggerAlertRequest{Type: "THRESHOLD_DRIFT", Message: "drifted"}
	assert.False(t, f.trigger(t, body).Fired)

	f.clock.Advance(30 * time.Minute)
	assert.True(t, f.trigger(t, body).Fired)
}

func TestMute_RejectsBadInput(t *testing.T) {
	f := newAlertFixture(t)

	w := f.do(t, http.MethodPost, "/v1/alerts/rules/NOPE/mute", handlers.MuteAlertRequest{DurationMinutes: 5})
	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")

	w = f.do(t, http.MethodPost, "/v1/alerts/rules/THRESHOLD_DRIFT/mute", handlers.MuteAlertRequest{DurationMinutes: -1})
	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestUpdateRule_DisablesAndListsMergedRules(t *testing.T) {
	f := newAlertFixture(t)

	w := f.do(t, http.MethodPut, "/v1/alerts/rules/HIGH_BOT_ACTIVITY", map[string]interface{}{"enabled": false})
	var rule models.AlertRule
	AssertJSONResponse(t, w, http.StatusOK, &rule)
	require.NotNil(t, rule.Enabled)
	assert.False(t, *rule.Enabled)
	require.NotNil(t, rule.CooldownMinutes)
	assert.Equal(t, 60, *rule.CooldownMinutes)

	assert.False(t, f.trigger(t, handlers.TriggerAlertRequest{Type: "HIGH_BOT_ACTIVITY", Message: "m"}).Fired)

	w = f.do(t, http.MethodGet, "/v1/alerts/rules", nil)
	var list struct {
		Rules []models.AlertRule `json:"rules"`
	}
	AssertJSONResponse(t, w, http.StatusOK, &list)
	assert.Len(t, list.Rules, len(models.AlertTypes()))

	w = f.do(t, http.MethodPut, "/v1/alerts/rules/HIGH_BOT_ACTIVITY", map[string]interface{}{"cooldown_minutes": -5})
	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestAcknowledge(t *testing.T) {
	f := newAlertFixture(t)
	require.True(t, f.trigger(t, handlers.TriggerAlertRequest{Type: "ANOMALY_DETECTED", Message: "m"}).Fired)

	events := f.history(t)
	require.Len(t, events, 1)
	require.False(t, events[0].Acknowledged)

	t.Run("malformed id", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/alerts/history/not-a-uuid/ack", nil)
		AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	})

	t.Run("unknown id", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/alerts/history/"+uuid.NewString()+"/ack", nil)
		AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})

	t.Run("known id", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/alerts/history/"+events[0].ID.String()+"/ack", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, f.history(t)[0].Acknowledged)
	})
}

func TestClearHistory_KeepsCooldown(t *testing.T) {
	f := newAlertFixture(t)
	body := handlers.TriggerAlertRequest{Type: "HIGH_FALSE_POSITIVE_RATE", Message: "m"}
	require.True(t, f.trigger(t, body).Fired)
	require.Len(t, f.history(t), 1)

	w := f.do(t, http.MethodDelete, "/v1/alerts/history", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Empty(t, f.history(t))
	assert.False(t, f.trigger(t, body).Fired)
}
