package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/ttlstore"
)

const (
	attemptReportKeyPrefix = "attempt:"
	lastAttemptReportKey   = "attempt:last_id"
)

// AttemptReportService keeps externally reported attempts for a short window
// so a companion app can fetch the most recent one. Every report raises a
// SOC alert.
type AttemptReportService struct {
	store  ttlstore.Store
	alerts *AlertService
	ttl    time.Duration
	logger *slog.Logger
}

func NewAttemptReportService(store ttlstore.Store, alerts *AlertService, ttl time.Duration, logger *slog.Logger) *AttemptReportService {
	return &AttemptReportService{
		store:  store,
		alerts: alerts,
		ttl:    ttl,
		logger: logger,
	}
}

func attemptReportKey(id string) string {
	return attemptReportKeyPrefix + id
}

// Save stores the report, points the last-report marker at it and emits a
// reported_attempt alert. Saving the same ID again overwrites the report.
func (s *AttemptReportService) Save(ctx context.Context, report *models.AttemptReport) error {
	if report == nil {
		return fmt.Errorf("%w: attempt report is required", models.ErrValidation)
	}
	report.AttemptID = strings.TrimSpace(report.AttemptID)
	if report.AttemptID == "" || report.UserID == "" {
		return fmt.Errorf("%w: attemptId and userId are required", models.ErrValidation)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal attempt report: %w", err)
	}

	if err := s.store.Set(ctx, attemptReportKey(report.AttemptID), string(payload), s.ttl); err != nil {
		return err
	}
	if err := s.store.Set(ctx, lastAttemptReportKey, report.AttemptID, s.ttl); err != nil {
		return err
	}

	s.logger.Info("attempt report stored",
		slog.String("attempt_id", report.AttemptID),
		slog.String("service", report.ServiceName))

	return s.alerts.Emit(ctx, &models.Alert{
		Username:      report.UserID,
		SourceAddress: report.IPAddress,
		Country:       report.CurrentLocation,
		Device:        report.DeviceInfo,
		Outcome:       report.AlertOutcome(),
		RuleLabel:     models.RiskHigh,
		MLLabel:       models.RiskCritical,
		Reason:        models.AlertReasonReportedAttempt,
	})
}

// Get returns a stored report or models.ErrNotFound once it has expired
func (s *AttemptReportService) Get(ctx context.Context, id string) (*models.AttemptReport, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.ErrNotFound
	}

	payload, err := s.store.Get(ctx, attemptReportKey(id))
	if errors.Is(err, ttlstore.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var report models.AttemptReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		s.logger.Warn("discarding malformed attempt report",
			slog.String("attempt_id", id),
			slog.Any("error", err))
		return nil, models.ErrNotFound
	}
	return &report, nil
}

// Last returns the most recently saved report. models.ErrNotFound means no
// report was saved within the TTL or the last one has already expired.
func (s *AttemptReportService) Last(ctx context.Context) (*models.AttemptReport, error) {
	id, err := s.store.Get(ctx, lastAttemptReportKey)
	if errors.Is(err, ttlstore.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
