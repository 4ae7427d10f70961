package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	pkghttp "github.com/BradenHooton/sentinel/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	claims *models.AdminClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*models.AdminClaims, error) {
	return s.claims, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveAdmin(t *testing.T, v TokenValidator, authHeader string) (*httptest.ResponseRecorder, *models.AdminClaims) {
	t.Helper()

	var seen *models.AdminClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAdminFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/alerts/rules", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	RequireAdmin(v, discardLogger())(next).ServeHTTP(w, req)
	return w, seen
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequireAdmin_ValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, "sentinel")
	token, err := tm.GenerateAdminToken("ops", time.Hour)
	require.NoError(t, err)

	w, claims := serveAdmin(t, tm, "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "ops", claims.Subject)
}

func TestRequireAdmin_MissingHeader(t *testing.T) {
	w, claims := serveAdmin(t, stubValidator{}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, claims)
	assert.Equal(t, "unauthorized", decodeError(t, w).Error)
}

func TestRequireAdmin_MalformedHeader(t *testing.T) {
	for _, header := range []string{"Basic abc", "Bearer", "Bearer   ", "token"} {
		t.Run(header, func(t *testing.T) {
			w, _ := serveAdmin(t, stubValidator{}, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireAdmin_InvalidToken(t *testing.T) {
	w, claims := serveAdmin(t, stubValidator{err: models.ErrUnauthorized}, "Bearer garbage")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, claims)
}

func TestRequireAdmin_WrongRole(t *testing.T) {
	w, _ := serveAdmin(t, stubValidator{err: models.ErrForbidden}, "Bearer viewer-token")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Error)
}

func TestRequireAdmin_LowercaseScheme(t *testing.T) {
	v := stubValidator{claims: &models.AdminClaims{Role: models.RoleAdmin}}

	w, claims := serveAdmin(t, v, "bearer abc")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotNil(t, claims)
}

func TestGetAdminFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetAdminFromContext(req))
}
