package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/munai7/TrustGate/internal/models"
	pkglogger "github.com/munai7/TrustGate/pkg/logger"
)

const (
	defaultAlertListLimit = 50
	maxAlertListLimit     = 500

	// defaultPublishTimeout bounds each fan-out call so a slow sink cannot
	// hold up the login response
	defaultPublishTimeout = 2 * time.Second
)

// AlertRepository is the durable alert ledger
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	ListRecent(ctx context.Context, limit int) ([]*models.Alert, error)
}

// AlertPublisher forwards alerts to an out-of-band channel such as a
// message bus or an e-mail relay.
type AlertPublisher interface {
	Name() string
	Publish(ctx context.Context, alert *models.Alert) error
}

// AlertService is the SOC alert sink. The durable write must succeed;
// publishers are best effort.
type AlertService struct {
	repo       AlertRepository
	publishers []AlertPublisher
	recorder   Recorder
	logger     *slog.Logger
	env        string
	now        func() time.Time

	publishTimeout time.Duration
}

func NewAlertService(repo AlertRepository, recorder Recorder, logger *slog.Logger, publishers ...AlertPublisher) *AlertService {
	return &AlertService{
		repo:       repo,
		publishers: publishers,
		recorder:   recorderOrNoop(recorder),
		logger:     logger,
		now:        time.Now,

		publishTimeout: defaultPublishTimeout,
	}
}

// WithClock replaces the time source used for CreatedAt
func (s *AlertService) WithClock(now func() time.Time) *AlertService {
	s.now = now
	return s
}

// WithEnv sets the environment used to redact usernames in the alert log
func (s *AlertService) WithEnv(env string) *AlertService {
	s.env = env
	return s
}

// WithPublishTimeout sets the per-publisher deadline. Non-positive values are ignored.
func (s *AlertService) WithPublishTimeout(d time.Duration) *AlertService {
	if d > 0 {
		s.publishTimeout = d
	}
	return s
}

// Emit records the alert and fans it out. Only a failed durable write is
// returned to the caller.
func (s *AlertService) Emit(ctx context.Context, alert *models.Alert) error {
	if alert == nil || alert.Username == "" || alert.Reason == "" {
		return fmt.Errorf("%w: alert requires username and reason", models.ErrValidation)
	}

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now().UTC()
	}

	s.logger.Error("SOC alert",
		slog.String("alert_id", alert.ID.String()),
		slog.String("reason", alert.Reason),
		pkglogger.RedactedAttr("username", alert.Username, s.env),
		slog.String("ip_address", alert.SourceAddress),
		slog.String("country", alert.Country),
		slog.String("outcome", alert.Outcome),
		slog.String("rule_risk", alert.RuleLabel.String()),
		slog.String("ml_risk", alert.MLLabel.String()))

	if err := s.repo.Create(ctx, alert); err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	s.recorder.IncAlert(alert.Reason)

	for _, p := range s.publishers {
		s.publish(ctx, p, alert)
	}

	return nil
}

func (s *AlertService) publish(ctx context.Context, p AlertPublisher, alert *models.Alert) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, alert); err != nil {
		s.recorder.IncAlertPublishFailure(p.Name())
		s.logger.Warn("alert publish failed",
			slog.String("sink", p.Name()),
			slog.String("alert_id", alert.ID.String()),
			slog.Any("error", err))
	}
}

// ListRecent returns alerts newest first. A non-positive limit uses the
// default; larger limits are capped.
func (s *AlertService) ListRecent(ctx context.Context, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = defaultAlertListLimit
	}
	if limit > maxAlertListLimit {
		limit = maxAlertListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}
