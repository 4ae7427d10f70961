package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/sentinel/internal/auth"
	"github.com/BradenHooton/sentinel/internal/config"
	"github.com/BradenHooton/sentinel/internal/database"
	"github.com/BradenHooton/sentinel/internal/handlers"
	"github.com/BradenHooton/sentinel/internal/metrics"
	middlewareCustom "github.com/BradenHooton/sentinel/internal/middleware"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/routes"
	"github.com/BradenHooton/sentinel/internal/services"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
)

const testAdminSecret = "test-secret-32-characters-long-for-testing"

// RecordingSink captures notifications for test assertions
type RecordingSink struct {
	mu   sync.Mutex
	sent []models.Notification
}

// Notify records the notification
func (s *RecordingSink) Notify(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

// Sent returns a copy of the captured notifications
func (s *RecordingSink) Sent() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.sent...)
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Repos  Repositories
	Sink   *RecordingSink
	Config *config.Config

	AttemptGate *services.AttemptGate
	AlertGate   *services.AlertGate
	adminToken  string
}

// NewTestServer initializes a complete HTTP server backed by the real database
func NewTestServer(db *database.DB) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			TrustedProxies: []string{},
			APIRateLimit:   10000,
			APIRateWindow:  time.Minute,
		},
		Admin: config.AdminConfig{
			JWTSecret: testAdminSecret,
			Issuer:    "sentinel-test",
		},
		Rules: *config.DefaultRules(),
	}

	repos := InitializeRepositories(db)
	sink := &RecordingSink{}
	m := metrics.New()

	auditService := services.NewAuditService(repos.AuditLogs, logger)
	attemptGate := services.NewAttemptGate(repos.Attempts, auditService, cfg.Rules.Attempts, logger,
		services.WithMetrics(m),
	)
	alertGate := services.NewAlertGate(repos.AlertRules, repos.AlertHistory, sink, cfg.Rules.Alerts, logger,
		services.WithMetrics(m),
		services.WithAlertAudit(auditService),
	)

	tokenManager := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.Issuer)
	adminToken, err := tokenManager.GenerateAdminToken("integration", time.Hour)
	if err != nil {
		return nil, err
	}

	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	rateLimit := middlewareCustom.DefaultAPIRateLimit(ipConfig)
	rateLimit.Requests = cfg.Server.APIRateLimit

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecureLogger(logger, m))
	r.Use(chiMiddleware.Recoverer)

	routes.RegisterRoutes(r, routes.Handlers{
		Attempts: handlers.NewAttemptHandler(attemptGate, ipConfig),
		Alerts:   handlers.NewAlertHandler(alertGate),
		Audit:    handlers.NewAuditHandler(auditService),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error { return db.Pool.Ping(ctx) },
		}),
		Metrics: m.Handler(),
	}, tokenManager, rateLimit, logger)

	return &TestServer{
		Server:      httptest.NewServer(r),
		DB:          db,
		Repos:       repos,
		Sink:        sink,
		Config:      cfg,
		AttemptGate: attemptGate,
		AlertGate:   alertGate,
		adminToken:  adminToken,
	}, nil
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// AdminRequest makes a request carrying the test admin token
func (ts *TestServer) AdminRequest(method, path string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + ts.adminToken,
	})
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
