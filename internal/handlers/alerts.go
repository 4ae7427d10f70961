package handlers

import (
	"net/http"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/services"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AlertHandler exposes the alert gate and its admin operations over HTTP
type AlertHandler struct {
	gate *services.AlertGate
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(gate *services.AlertGate) *AlertHandler {
	return &AlertHandler{gate: gate}
}

// TriggerAlertRequest is the body of POST /v1/alerts/trigger
type TriggerAlertRequest struct {
	Type     string           `json:"type" validate:"required"`
	Message  string           `json:"message" validate:"required,max=1024"`
	Severity string           `json:"severity,omitempty" validate:"omitempty,oneof=info warning error"`
	Data     models.AlertData `json:"data,omitempty"`
}

// TriggerAlertResponse reports whether the alert fired
type TriggerAlertResponse struct {
	Fired bool `json:"fired"`
}

// MuteAlertRequest is the body of POST /v1/alerts/rules/{type}/mute
type MuteAlertRequest struct {
	DurationMinutes int `json:"duration_minutes" validate:"gte=0"`
}

// Trigger fires an alert unless its rule suppresses it
func (h *AlertHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var body TriggerAlertRequest
	if err := pkghttp.DecodeJSON(w, r, &body, pkghttp.DefaultMaxBodyBytes); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// rejected here so callers get a 400 instead of fired=false
	alertType, err := models.ParseAlertType(body.Type)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	severity := models.SeverityInfo
	if body.Severity != "" {
		severity = models.Severity(body.Severity)
	}

	fired := h.gate.TryTrigger(r.Context(), alertType, body.Message, severity, body.Data)
	pkghttp.WriteJSON(w, http.StatusOK, TriggerAlertResponse{Fired: fired})
}

// ListRules returns every alert rule merged with its defaults
func (h *AlertHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.gate.Rules(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

// UpdateRule applies a partial update to one alert rule
func (h *AlertHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	alertType, err := models.ParseAlertType(chi.URLParam(r, "type"))
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var body models.RuleUpdate
	if err := pkghttp.DecodeJSON(w, r, &body, pkghttp.DefaultMaxBodyBytes); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	rule, err := h.gate.UpdateRule(r.Context(), alertType, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, rule)
}

// Mute suppresses an alert type for the given number of minutes
func (h *AlertHandler) Mute(w http.ResponseWriter, r *http.Request) {
	alertType, err := models.ParseAlertType(chi.URLParam(r, "type"))
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var body MuteAlertRequest
	if err := pkghttp.DecodeJSON(w, r, &body, pkghttp.DefaultMaxBodyBytes); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.gate.MuteAlert(r.Context(), alertType, body.DurationMinutes); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History returns fired alerts, newest first
func (h *AlertHandler) History(w http.ResponseWriter, r *http.Request) {
	events, err := h.gate.History(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"alerts": events})
}

// Acknowledge marks one alert in history as acknowledged
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid alert id")
		return
	}

	if err := h.gate.AcknowledgeAlert(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory removes every alert from history
func (h *AlertHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.ClearHistory(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
