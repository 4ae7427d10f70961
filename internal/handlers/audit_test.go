package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/sentinel/internal/handlers"
	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/BradenHooton/sentinel/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuditRepo serves a fixed set of logs and keeps the last query
type stubAuditRepo struct {
	logs     []*models.AuditLog
	err      error
	identity string
	limit    int
	offset   int
}

func (r *stubAuditRepo) Create(_ context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	r.logs = append(r.logs, log)
	return log, nil
}

func (r *stubAuditRepo) GetByIdentity(_ context.Context, identity string, limit int, offset int) ([]*models.AuditLog, error) {
	r.identity, r.limit, r.offset = identity, limit, offset
	if r.err != nil {
		return nil, r.err
	}
	if offset >= len(r.logs) {
		return []*models.AuditLog{}, nil
	}
	end := offset + limit
	if end > len(r.logs) {
		end = len(r.logs)
	}
	return r.logs[offset:end], nil
}

type auditTrailResponse struct {
	Logs   []handlers.AuditLogResponse `json:"logs"`
	Limit  int                         `json:"limit"`
	Offset int                         `json:"offset"`
}

func seededAuditRepo(n int) *stubAuditRepo {
	identity := "alice@example.com"
	repo := &stubAuditRepo{}
	for i := 0; i < n; i++ {
		repo.logs = append(repo.logs, &models.AuditLog{
			ID:        uuid.New(),
			EventType: models.AuditEventAttemptRecorded,
			Action:    models.ActionSignIn,
			Identity:  &identity,
			CreatedAt: baseTime,
		})
	}
	return repo
}

func getAuditTrail(t *testing.T, repo *stubAuditRepo, query string) *httptest.ResponseRecorder {
	t.Helper()
	h := handlers.NewAuditHandler(services.NewAuditService(repo, discardLogger()))

	w := httptest.NewRecorder()
	h.GetIdentityAuditTrail(w, httptest.NewRequest(http.MethodGet, "/v1/audit"+query, nil))
	return w
}

func TestGetIdentityAuditTrail_Paging(t *testing.T) {
	repo := seededAuditRepo(7)

	w := getAuditTrail(t, repo, "?identity=Alice@Example.com&limit=5&offset=5")

	var resp auditTrailResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, 5, resp.Offset)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "signin", resp.Logs[0].Action)
	assert.Equal(t, "2024-06-01T10:00:00Z", resp.Logs[0].CreatedAt)
	assert.Equal(t, "alice@example.com", repo.identity)
}

func TestGetIdentityAuditTrail_OutOfRangePagingUsesDefaults(t *testing.T) {
	repo := seededAuditRepo(3)

	w := getAuditTrail(t, repo, "?identity=alice@example.com&limit=500&offset=-2")

	var resp auditTrailResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 50, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.Len(t, resp.Logs, 3)
	assert.Equal(t, 50, repo.limit)
	assert.Equal(t, 0, repo.offset)
}

func TestGetIdentityAuditTrail_RequiresIdentity(t *testing.T) {
	w := getAuditTrail(t, seededAuditRepo(1), "?identity=%20%20")

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestGetIdentityAuditTrail_StoreFailure(t *testing.T) {
	repo := &stubAuditRepo{err: models.ErrStoreUnavailable}

	w := getAuditTrail(t, repo, "?identity=alice@example.com")

	AssertErrorResponse(t, w, http.StatusServiceUnavailable, "service_unavailable")
}
