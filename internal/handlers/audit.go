package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/services"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
)

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID        string                 `json:"id"`
	EventType string                 `json:"event_type"`
	Action    string                 `json:"action"`
	Success   bool                   `json:"success"`
	IPAddress *string                `json:"ip_address,omitempty"`
	Identity  *string                `json:"identity,omitempty"`
	UserAgent *string                `json:"user_agent,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
}

// GetIdentityAuditTrail retrieves the audit trail of one identity (admin only)
func (h *AuditHandler) GetIdentityAuditTrail(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if models.NormalizeIdentity(identity) == "" {
		pkghttp.WriteBadRequest(w, "identity is required")
		return
	}

	// Get pagination parameters
	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	logs, err := h.auditService.GetIdentityAuditTrail(r.Context(), identity, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]*AuditLogResponse, len(logs))
	for i, log := range logs {
		response[i] = auditLogToResponse(log)
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   response,
		"limit":  limit,
		"offset": offset,
	})
}

func auditLogToResponse(log *models.AuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:        log.ID.String(),
		EventType: log.EventType,
		Action:    string(log.Action),
		Success:   log.Success,
		IPAddress: log.IPAddress,
		Identity:  log.Identity,
		UserAgent: log.UserAgent,
		Metadata:  log.Metadata,
		CreatedAt: log.CreatedAt.UTC().Format(time.RFC3339),
	}
}
