package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/sentinel/internal/handlers"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/repositories"
	"github.com/BradenHooton/sentinel/internal/services"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:54321"
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

type attemptFixture struct {
	clock   *testClock
	store   *repositories.MemoryAttemptStore
	handler *handlers.AttemptHandler
	router  chi.Router
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	clock := &testClock{now: baseTime}
	store := repositories.NewMemoryAttemptStore()
	gate := services.NewAttemptGate(store, services.NewAuditService(nil, discardLogger()),
		models.DefaultAttemptRules(), discardLogger(), services.WithClock(clock.Now))
	h := handlers.NewAttemptHandler(gate, pkghttp.NewIPConfig([]string{"10.0.0.0/8"}))

	r := chi.NewRouter()
	r.Post("/v1/attempts/check", h.Check)
	r.Post("/v1/attempts/record", h.Record)
	r.Post("/v1/attempts/check-and-record", h.CheckAndRecord)

	return &attemptFixture{clock: clock, store: store, handler: h, router: r}
}

func (f *attemptFixture) do(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, NewTestRequest(t, http.MethodPost, path, body))
	return w
}

type recordingSink struct {
	sent []models.Notification
}

func (s *recordingSink) Notify(_ context.Context, n models.Notification) error {
	s.sent = append(s.sent, n)
	return nil
}

type alertFixture struct {
	clock        *testClock
	historyStore *repositories.MemoryAlertHistoryStore
	sink         *recordingSink
	router       chi.Router
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	clock := &testClock{now: baseTime}
	history := repositories.NewMemoryAlertHistoryStore()
	sink := &recordingSink{}
	gate := services.NewAlertGate(repositories.NewMemoryAlertRuleStore(), history, sink,
		nil, discardLogger(), services.WithClock(clock.Now))
	h := handlers.NewAlertHandler(gate)

	r := chi.NewRouter()
	r.Post("/v1/alerts/trigger", h.Trigger)
	r.Get("/v1/alerts/rules", h.ListRules)
	r.Put("/v1/alerts/rules/{type}", h.UpdateRule)
	r.Post("/v1/alerts/rules/{type}/mute", h.Mute)
	r.Get("/v1/alerts/history", h.History)
	r.Post("/v1/alerts/history/{id}/ack", h.Acknowledge)
	r.Delete("/v1/alerts/history", h.ClearHistory)

	return &alertFixture{clock: clock, historyStore: history, sink: sink, router: r}
}

func (f *alertFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, NewTestRequest(t, method, path, body))
	return w
}
