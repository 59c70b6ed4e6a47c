package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/services"
	pkghttp "github.com/munai7/TrustGate/pkg/http"
	pkglogger "github.com/munai7/TrustGate/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger(), "test")
}

type mockAuthService struct {
	BeginFunc   func(ctx context.Context, req services.BeginRequest) (*services.BeginResult, error)
	ResolveFunc func(ctx context.Context, id string, decision models.Decision) (*services.ResolveResult, error)

	LastBegin services.BeginRequest
}

func (m *mockAuthService) BeginAuthentication(ctx context.Context, req services.BeginRequest) (*services.BeginResult, error) {
	m.LastBegin = req
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, req)
	}
	return &services.BeginResult{Status: services.StatusMFARequired, ChallengeID: "push-1"}, nil
}

func (m *mockAuthService) ResolveChallenge(ctx context.Context, id string, decision models.Decision) (*services.ResolveResult, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, id, decision)
	}
	return &services.ResolveResult{Outcome: string(decision), FinalLabel: models.RiskNormal}, nil
}

type mockLister struct {
	ListFunc func(ctx context.Context, username string) ([]*models.PendingChallenge, error)
}

func (m *mockLister) ListPending(ctx context.Context, username string) ([]*models.PendingChallenge, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, username)
	}
	return []*models.PendingChallenge{}, nil
}

type mockBlocks struct {
	Blocked   map[string]time.Duration
	Err       error
	Unblocked []string
}

func (m *mockBlocks) Unblock(_ context.Context, addr string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.Unblocked = append(m.Unblocked, addr)
	_, ok := m.Blocked[addr]
	delete(m.Blocked, addr)
	return ok, nil
}

func (m *mockBlocks) Remaining(_ context.Context, addr string) (time.Duration, bool, error) {
	if m.Err != nil {
		return 0, false, m.Err
	}
	d, ok := m.Blocked[addr]
	return d, ok, nil
}

type mockAlerts struct {
	Alerts    []*models.Alert
	LastLimit int
}

func (m *mockAlerts) ListRecent(_ context.Context, limit int) ([]*models.Alert, error) {
	m.LastLimit = limit
	return m.Alerts, nil
}

type mockHistory struct {
	Records   []*models.AttemptRecord
	LastUser  string
	LastLimit int
}

func (m *mockHistory) History(_ context.Context, username string, limit int) ([]*models.AttemptRecord, error) {
	m.LastUser = username
	m.LastLimit = limit
	return m.Records, nil
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.4:5555"
	return req
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var body pkghttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
