package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/services"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
)

// AttemptHandler exposes the attempt gate over HTTP
type AttemptHandler struct {
	gate     *services.AttemptGate
	ipConfig *pkghttp.IPConfig
}

// NewAttemptHandler creates a new AttemptHandler
func NewAttemptHandler(gate *services.AttemptGate, ipConfig *pkghttp.IPConfig) *AttemptHandler {
	return &AttemptHandler{
		gate:     gate,
		ipConfig: ipConfig,
	}
}

// AttemptCheckRequest is the body of POST /v1/attempts/check
type AttemptCheckRequest struct {
	Action    string `json:"action" validate:"required,max=64"`
	IP        string `json:"ip,omitempty" validate:"omitempty,ip"`
	Identity  string `json:"identity,omitempty" validate:"omitempty,max=320"`
	UserAgent string `json:"user_agent,omitempty" validate:"omitempty,max=512"`
}

// AttemptRecordRequest is the body of POST /v1/attempts/record
type AttemptRecordRequest struct {
	AttemptCheckRequest
	Success *bool `json:"success" validate:"required"`
}

// attemptRequest validates the body and resolves the IP. A caller that does
// not send one is assumed to be the client itself.
func (h *AttemptHandler) attemptRequest(r *http.Request, body AttemptCheckRequest) (models.AttemptRequest, error) {
	action, err := models.ParseActionType(body.Action)
	if err != nil {
		return models.AttemptRequest{}, err
	}

	ip := body.IP
	if ip == "" {
		ip = pkghttp.ExtractClientIP(r, h.ipConfig)
	}

	userAgent := body.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	return models.AttemptRequest{
		Action:    action,
		IP:        ip,
		Identity:  body.Identity,
		UserAgent: userAgent,
	}, nil
}

// Check reports whether an attempt may proceed. Denials answer 429 with a
// Retry-After header and the decision as body.
func (h *AttemptHandler) Check(w http.ResponseWriter, r *http.Request) {
	var body AttemptCheckRequest
	if err := pkghttp.DecodeJSON(w, r, &body, pkghttp.DefaultMaxBodyBytes); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req, err := h.attemptRequest(r, body)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	writeDecision(w, h.gate.Check(r.Context(), req))
}

// Record stores the outcome of an attempt the caller has made
func (h *AttemptHandler) Record(w http.ResponseWriter, r *http.Request) {
	var body AttemptRecordRequest
	if err := pkghttp.DecodeJSON(w, r, &body, pkghttp.DefaultMaxBodyBytes); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req, err := h.attemptRequest(r, body.AttemptCheckRequest)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	h.gate.Record(r.Context(), req, *body.Success)
	w.WriteHeader(http.StatusNoContent)
}

// CheckAndRecord checks the attempt and, when allowed, records the outcome
// the caller already knows. A denied attempt is not recorded.
func (h *AttemptHandler) CheckAndRecord(w http.ResponseWriter, r *http.Request) {
	var body AttemptRecordRequest
	if err := pkghttp.DecodeJSON(w, r, &body, pkghttp.DefaultMaxBodyBytes); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(body); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req, err := h.attemptRequest(r, body.AttemptCheckRequest)
	if err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	success := *body.Success
	decision := h.gate.CheckAndRecord(r.Context(), req, func(context.Context) bool {
		return success
	})
	writeDecision(w, decision)
}

func writeDecision(w http.ResponseWriter, decision models.GateDecision) {
	if decision.Allowed {
		pkghttp.WriteJSON(w, http.StatusOK, decision)
		return
	}
	if decision.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
	}
	pkghttp.WriteJSON(w, http.StatusTooManyRequests, decision)
}

// writeServiceError maps admin-operation errors onto JSON error responses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAlertType),
		errors.Is(err, models.ErrInvalidActionType),
		errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrStoreUnavailable):
		pkghttp.WriteServiceUnavailable(w, "store unavailable")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}
