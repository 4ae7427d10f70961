package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordBody(action, ip, identity string, success bool) map[string]interface{} {
	body := map[string]interface{}{"action": action, "success": success}
	if ip != "" {
		body["ip"] = ip
	}
	if identity != "" {
		body["identity"] = identity
	}
	return body
}

func TestCheck_AllowedWithoutHistory(t *testing.T) {
	f := newAttemptFixture(t)

	w := f.do(t, "/v1/attempts/check", map[string]string{"action": "signin", "identity": "alice@example.com"})

	var decision models.GateDecision
	AssertJSONResponse(t, w, http.StatusOK, &decision)
	assert.True(t, decision.Allowed)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestCheck_DeniedAfterLimitReturns429(t *testing.T) {
	f := newAttemptFixture(t)

	for i := 0; i < 5; i++ {
		w := f.do(t, "/v1/attempts/record", recordBody("signin", "198.51.100.7", "alice@example.com", false))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w := f.do(t, "/v1/attempts/check", map[string]string{"action": "signin", "ip": "198.51.100.7"})

	var decision models.GateDecision
	AssertJSONResponse(t, w, http.StatusTooManyRequests, &decision)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1800, decision.RetryAfterSeconds)
	assert.Equal(t, models.ScopeIP, decision.Scope)
	assert.Equal(t, "1800", w.Header().Get("Retry-After"))
	assert.Equal(t, "try again in 30 minutes", decision.Message)
}

func TestCheck_AllowedAgainAfterBlockLapses(t *testing.T) {
	f := newAttemptFixture(t)

	for i := 0; i < 5; i++ {
		f.do(t, "/v1/attempts/record", recordBody("signin", "", "alice@example.com", false))
	}
	f.clock.Advance(30 * time.Minute)

	w := f.do(t, "/v1/attempts/check", map[string]string{"action": "signin", "identity": "ALICE@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecord_UsesClientIPWhenBodyOmitsIt(t *testing.T) {
	f := newAttemptFixture(t)

	w := f.do(t, "/v1/attempts/record", recordBody("signup", "", "", false))
	require.Equal(t, http.StatusNoContent, w.Code)

	events, err := f.store.Query(context.Background(), models.IPKey("203.0.113.10"), models.ActionSignUp, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.False(t, events[0].Success)
}

func TestRecord_ForwardedClientBehindTrustedProxy(t *testing.T) {
	f := newAttemptFixture(t)

	req := NewTestRequest(t, http.MethodPost, "/v1/attempts/record", recordBody("signin", "", "", false))
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Forwarded-For", "192.0.2.44")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	events, err := f.store.Query(context.Background(), models.IPKey("192.0.2.44"), models.ActionSignIn, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestCheck_UnconfiguredActionAllowed(t *testing.T) {
	f := newAttemptFixture(t)

	w := f.do(t, "/v1/attempts/check", map[string]string{"action": "checkout"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheck_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing action", map[string]string{"identity": "alice"}},
		{"malformed action", map[string]string{"action": "Sign In!"}},
		{"invalid ip", map[string]string{"action": "signin", "ip": "not-an-ip"}},
		{"unknown field", map[string]string{"action": "signin", "password": "hunter2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture(t)
			w := f.do(t, "/v1/attempts/check", tt.body)
			AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestRecord_RequiresSuccessFlag(t *testing.T) {
	f := newAttemptFixture(t)

	w := f.do(t, "/v1/attempts/record", map[string]string{"action": "signin"})

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestCheckAndRecord_DeniedAttemptIsNotRecorded(t *testing.T) {
	f := newAttemptFixture(t)
	body := recordBody("reset_password", "", "bob", false)

	for i := 0; i < 3; i++ {
		w := f.do(t, "/v1/attempts/check-and-record", body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, "/v1/attempts/check-and-record", body)
	var decision models.GateDecision
	AssertJSONResponse(t, w, http.StatusTooManyRequests, &decision)
	assert.Equal(t, 3600, decision.RetryAfterSeconds)

	events, err := f.store.Query(context.Background(), models.IdentityKey("bob"), models.ActionResetPassword, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestCheckAndRecord_SuccessDoesNotCount(t *testing.T) {
	f := newAttemptFixture(t)
	body := map[string]interface{}{"action": "signup", "identity": "carol", "success": true}

	for i := 0; i < 10; i++ {
		w := f.do(t, "/v1/attempts/check-and-record", body)
		require.Equal(t, http.StatusOK, w.Code)
	}
}
