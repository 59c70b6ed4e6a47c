package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munai7/TrustGate/internal/auth"
	"github.com/munai7/TrustGate/internal/handlers"
	"github.com/munai7/TrustGate/internal/models"
)

type adminFixture struct {
	blocks  *mockBlocks
	alerts  *mockAlerts
	history *mockHistory
	router  chi.Router
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		blocks:  &mockBlocks{Blocked: map[string]time.Duration{}},
		alerts:  &mockAlerts{},
		history: &mockHistory{},
	}
	h := handlers.NewAdminHandler(f.blocks, f.alerts, f.history, testAudit(), testLogger())

	r := chi.NewRouter()
	r.Post("/admin/unblock", h.Unblock)
	r.Get("/admin/blocks/{ip}", h.BlockStatus)
	r.Get("/admin/attempts/{username}", h.Attempts)
	r.Get("/soc/alerts", h.Alerts)
	f.router = r
	return f
}

func (f *adminFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	claims := &models.TokenClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "root"}}
	req = req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, claims))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestUnblock(t *testing.T) {
	f := newAdminFixture()
	f.blocks.Blocked["203.0.113.9"] = time.Hour

	rec := f.serve(jsonRequest(http.MethodPost, "/admin/unblock", `{"ip":"203.0.113.9"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.UnblockResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, handlers.UnblockResponse{Status: "ok", Unblocked: "203.0.113.9", WasBlocked: true}, body)

	// second call is idempotent
	rec = f.serve(jsonRequest(http.MethodPost, "/admin/unblock", `{"ip":"203.0.113.9"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.WasBlocked)
}

func TestUnblock_RejectsInvalidAddress(t *testing.T) {
	f := newAdminFixture()

	rec := f.serve(jsonRequest(http.MethodPost, "/admin/unblock", `{"ip":"not-an-ip"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ip: must be a valid IP address", decodeErrorBody(t, rec).Details)
	assert.Empty(t, f.blocks.Unblocked)
}

func TestUnblock_DependencyFailure(t *testing.T) {
	f := newAdminFixture()
	f.blocks.Err = models.ErrDependencyUnavailable

	rec := f.serve(jsonRequest(http.MethodPost, "/admin/unblock", `{"ip":"203.0.113.9"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBlockStatus(t *testing.T) {
	f := newAdminFixture()
	f.blocks.Blocked["10.0.0.7"] = 90 * time.Second

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/admin/blocks/10.0.0.7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.BlockStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Blocked)
	assert.Equal(t, int64(90), body.RemainingSeconds)

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/admin/blocks/10.0.0.8", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Blocked)
	assert.Zero(t, body.RemainingSeconds)

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/admin/blocks/bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlerts_Limit(t *testing.T) {
	f := newAdminFixture()
	f.alerts.Alerts = []*models.Alert{{Username: "alice", Reason: models.AlertReasonEscalation}}

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/soc/alerts?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.alerts.LastLimit)

	var body []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "alice", body[0]["user"])

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/soc/alerts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.alerts.LastLimit, "service applies its own default")

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/soc/alerts?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttempts_ClampsLimit(t *testing.T) {
	f := newAdminFixture()

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/admin/attempts/bob", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", f.history.LastUser)
	assert.Equal(t, 20, f.history.LastLimit)

	f.serve(httptest.NewRequest(http.MethodGet, "/admin/attempts/bob?limit=5000", nil))
	assert.Equal(t, 200, f.history.LastLimit)

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/admin/attempts/bob?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
