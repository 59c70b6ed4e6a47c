package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/ttlstore"
)

const rateLimitKeyPrefix = "rl:"

// RateLimitConfig holds the sliding window parameters
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	Grace  time.Duration // added to the key expiry so abandoned windows self-clean
}

// RateLimitService is a per-source-address sliding window counter
type RateLimitService struct {
	store  ttlstore.Store
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(store ttlstore.Store, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source, used by tests driving a MemoryStore
func (s *RateLimitService) WithClock(now func() time.Time) *RateLimitService {
	s.now = now
	return s
}

// Admit records the request and reports whether it is within quota. The
// request is recorded even when rejected, so sustained retries keep the
// address throttled.
func (s *RateLimitService) Admit(ctx context.Context, sourceAddress string) (bool, error) {
	if sourceAddress == "" {
		return false, fmt.Errorf("%w: source address is required", models.ErrValidation)
	}

	count, err := s.store.WindowAdmit(ctx, rateLimitKeyPrefix+sourceAddress, s.now(), s.config.Window, s.config.Window+s.config.Grace)
	if err != nil {
		return false, err
	}

	if count >= int64(s.config.Max) {
		s.logger.Warn("source address rate limited",
			slog.String("ip_address", sourceAddress),
			slog.Int64("window_count", count),
			slog.Int("max", s.config.Max),
			slog.Duration("window", s.config.Window))
		return false, nil
	}

	return true, nil
}
