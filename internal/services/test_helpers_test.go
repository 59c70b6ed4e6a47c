package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/munai7/TrustGate/internal/config"
	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/risk"
	"github.com/munai7/TrustGate/internal/ttlstore"
	pkglogger "github.com/munai7/TrustGate/pkg/logger"
)

var testDurations = config.BlockDurations{
	Low:      300 * time.Second,
	Medium:   600 * time.Second,
	High:     86400 * time.Second,
	Critical: 604800 * time.Second,
}

const (
	testRateLimitMax   = 10
	testRateWindow     = 60 * time.Second
	testPushTTL        = 180 * time.Second
	testBlockThreshold = 5
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a manually advanced time source shared by the store and services
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByUsernameFunc  func(ctx context.Context, username string) (*models.User, error)
	UpsertPasswordFunc func(ctx context.Context, username, passwordHash, role string) error
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpsertPassword(ctx context.Context, username, passwordHash, role string) error {
	if m.UpsertPasswordFunc != nil {
		return m.UpsertPasswordFunc(ctx, username, passwordHash, role)
	}
	return nil
}

// MockVerifier implements CredentialVerifier for testing
type MockVerifier struct {
	VerifyFunc func(ctx context.Context, username, password string) (*models.User, error)
}

func (m *MockVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, username, password)
	}
	return &models.User{ID: "u-" + username, Username: username, Role: models.RoleUser, Status: models.UserStatusActive}, nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(username, role string, risk models.RiskLabel) (string, error)
}

func (m *MockTokenIssuer) IssueSessionToken(username, role string, risk models.RiskLabel) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(username, role, risk)
	}
	return "token-" + username, nil
}

// MockAttemptLedger keeps records in memory unless a Func override is set
type MockAttemptLedger struct {
	mu         sync.Mutex
	Records    []*models.AttemptRecord
	AppendFunc func(ctx context.Context, record *models.AttemptRecord) error
	LatestFunc func(ctx context.Context, username string) (*models.AttemptRecord, error)
}

func (m *MockAttemptLedger) Append(ctx context.Context, record *models.AttemptRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = int64(len(m.Records) + 1)
	m.Records = append(m.Records, record)
	return nil
}

func (m *MockAttemptLedger) Latest(ctx context.Context, username string) (*models.AttemptRecord, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Username == username {
			return m.Records[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptLedger) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}

// MockAlertRepository keeps alerts in memory unless a Func override is set
type MockAlertRepository struct {
	mu         sync.Mutex
	Alerts     []*models.Alert
	CreateFunc func(ctx context.Context, alert *models.Alert) error
	LastLimit  int
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, alert)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockAlertRepository) ListRecent(_ context.Context, limit int) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLimit = limit
	out := make([]*models.Alert, 0, len(m.Alerts))
	for i := len(m.Alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Alerts[i])
	}
	return out, nil
}

func (m *MockAlertRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

// MockAlertPublisher implements AlertPublisher for testing
type MockAlertPublisher struct {
	NameValue   string
	PublishFunc func(ctx context.Context, alert *models.Alert) error
	Published   []*models.Alert
}

func (m *MockAlertPublisher) Name() string {
	return m.NameValue
}

func (m *MockAlertPublisher) Publish(ctx context.Context, alert *models.Alert) error {
	m.Published = append(m.Published, alert)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, alert)
	}
	return nil
}

// MockCountryResolver implements CountryResolver for testing
type MockCountryResolver struct {
	Countries map[string]string
}

func (m *MockCountryResolver) CountryCode(ip string) (string, error) {
	if c, ok := m.Countries[ip]; ok {
		return c, nil
	}
	return "", models.ErrNotFound
}

// MockRecorder counts calls by label
type MockRecorder struct {
	mu        sync.Mutex
	Decisions map[string]int
	Blocks    map[string]int
	Alerts    map[string]int
	Failures  map[string]int
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{
		Decisions: map[string]int{},
		Blocks:    map[string]int{},
		Alerts:    map[string]int{},
		Failures:  map[string]int{},
	}
}

func (m *MockRecorder) IncDecision(stage, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decisions[stage+"/"+outcome]++
}

func (m *MockRecorder) IncAssessment(string) {}

func (m *MockRecorder) IncBlock(risk string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Blocks[risk]++
}

func (m *MockRecorder) IncAlert(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts[reason]++
}

func (m *MockRecorder) IncAlertPublishFailure(sink string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[sink]++
}

// authHarness wires an AuthService over a MemoryStore and in-memory ledgers
type authHarness struct {
	clock      *fakeClock
	store      *ttlstore.MemoryStore
	ledger     *MockAttemptLedger
	alertRepo  *MockAlertRepository
	verifier   *MockVerifier
	issuer     *MockTokenIssuer
	recorder   *MockRecorder
	blocks     *BlockService
	limiter    *RateLimitService
	challenges *ChallengeService
	alerts     *AlertService
	service    *AuthService
}

func newAuthHarness() *authHarness {
	h := &authHarness{
		clock:     newFakeClock(),
		ledger:    &MockAttemptLedger{},
		alertRepo: &MockAlertRepository{},
		verifier:  &MockVerifier{},
		issuer:    &MockTokenIssuer{},
		recorder:  NewMockRecorder(),
	}
	logger := testLogger()

	h.store = ttlstore.NewMemoryStore(h.clock.Now)
	h.blocks = NewBlockService(h.store, testDurations, time.Hour, logger)
	h.limiter = NewRateLimitService(h.store, RateLimitConfig{
		Max:    testRateLimitMax,
		Window: testRateWindow,
		Grace:  2 * time.Second,
	}, logger).WithClock(h.clock.Now)
	h.challenges = NewChallengeService(h.store, testPushTTL, logger).WithClock(h.clock.Now)
	h.alerts = NewAlertService(h.alertRepo, h.recorder, logger).WithClock(h.clock.Now)

	h.service = NewAuthService(AuthServiceDeps{
		Blocks:         h.blocks,
		Limiter:        h.limiter,
		Challenges:     h.challenges,
		Alerts:         h.alerts,
		Verifier:       h.verifier,
		Issuer:         h.issuer,
		Ledger:         h.ledger,
		Engine:         risk.NewEngine(nil),
		Audit:          pkglogger.NewAuditLogger(logger, "test"),
		Recorder:       h.recorder,
		Logger:         logger,
		BlockThreshold: testBlockThreshold,
	})
	return h
}

// seedLast appends a prior attempt that becomes the change-detection baseline
func (h *authHarness) seedLast(signal models.AttemptSignal, failed int) {
	h.ledger.Records = append(h.ledger.Records, models.NewAttemptRecord(signal, failed, models.RiskNormal.String()))
}

func signalFor(username, ip, country, device string) models.AttemptSignal {
	return models.AttemptSignal{Username: username, SourceAddress: ip, Country: country, Device: device}
}

func beginFor(s models.AttemptSignal) BeginRequest {
	return BeginRequest{
		Username:      s.Username,
		Password:      "password1",
		Device:        s.Device,
		Country:       s.Country,
		SourceAddress: s.SourceAddress,
	}
}
