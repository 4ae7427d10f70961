package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/sentinel/internal/auth"
	"github.com/BradenHooton/sentinel/internal/handlers"
	"github.com/BradenHooton/sentinel/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Attempts *handlers.AttemptHandler
	Alerts   *handlers.AlertHandler
	Audit    *handlers.AuditHandler
	Health   *handlers.HealthHandler
	Metrics  http.Handler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	validator auth.TokenValidator,
	rateLimit middleware.RateLimitConfig,
	logger *slog.Logger,
) {
	router.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimit))

		// Caller-facing gate endpoints, used by the auth flow and detectors
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(validator, logger))

			r.Post("/attempts/check", h.Attempts.Check)
			r.Post("/attempts/record", h.Attempts.Record)
			r.Post("/attempts/check-and-record", h.Attempts.CheckAndRecord)

			r.Post("/alerts/trigger", h.Alerts.Trigger)

			// Administrative operations
			r.Get("/alerts/rules", h.Alerts.ListRules)
			r.Put("/alerts/rules/{type}", h.Alerts.UpdateRule)
			r.Post("/alerts/rules/{type}/mute", h.Alerts.Mute)
			r.Get("/alerts/history", h.Alerts.History)
			r.Post("/alerts/history/{id}/ack", h.Alerts.Acknowledge)
			r.Delete("/alerts/history", h.Alerts.ClearHistory)

			r.Get("/audit", h.Audit.GetIdentityAuditTrail)
		})
	})
}
