package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/munai7/TrustGate/internal/config"
	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/ttlstore"
)

const blockKeyPrefix = "block:"

// BlockService is the severity-tiered temporary denylist keyed by source address.
// A block is an existence marker; expiry lifts it.
type BlockService struct {
	store     ttlstore.Store
	durations config.BlockDurations
	fallback  time.Duration
	logger    *slog.Logger
}

func NewBlockService(store ttlstore.Store, durations config.BlockDurations, fallback time.Duration, logger *slog.Logger) *BlockService {
	return &BlockService{
		store:     store,
		durations: durations,
		fallback:  fallback,
		logger:    logger,
	}
}

func blockKey(addr string) string {
	return blockKeyPrefix + addr
}

func (s *BlockService) IsBlocked(ctx context.Context, sourceAddress string) (bool, error) {
	if sourceAddress == "" {
		return false, fmt.Errorf("%w: source address is required", models.ErrValidation)
	}
	return s.store.Exists(ctx, blockKey(sourceAddress))
}

// Block sets or replaces the marker with the given duration
func (s *BlockService) Block(ctx context.Context, sourceAddress string, duration time.Duration) error {
	if sourceAddress == "" {
		return fmt.Errorf("%w: source address is required", models.ErrValidation)
	}
	if duration <= 0 {
		return fmt.Errorf("%w: block duration must be positive", models.ErrValidation)
	}

	if err := s.store.Set(ctx, blockKey(sourceAddress), "1", duration); err != nil {
		return err
	}

	s.logger.Warn("blocked source address",
		slog.String("ip_address", sourceAddress),
		slog.Duration("duration", duration))
	return nil
}

// DurationFor looks up the tier table, using the fallback for labels without a tier
func (s *BlockService) DurationFor(label models.RiskLabel) time.Duration {
	if d, ok := s.durations.For(label); ok {
		return d
	}
	return s.fallback
}

// BlockForLabel blocks for the tier duration of label and returns it
func (s *BlockService) BlockForLabel(ctx context.Context, sourceAddress string, label models.RiskLabel) (time.Duration, error) {
	duration := s.DurationFor(label)
	if err := s.Block(ctx, sourceAddress, duration); err != nil {
		return 0, err
	}
	return duration, nil
}

// Unblock removes the marker early and reports whether one existed
func (s *BlockService) Unblock(ctx context.Context, sourceAddress string) (bool, error) {
	if sourceAddress == "" {
		return false, fmt.Errorf("%w: source address is required", models.ErrValidation)
	}
	return s.store.Delete(ctx, blockKey(sourceAddress))
}

// Remaining reports the time left on a block; ok is false when not blocked
func (s *BlockService) Remaining(ctx context.Context, sourceAddress string) (time.Duration, bool, error) {
	if sourceAddress == "" {
		return 0, false, fmt.Errorf("%w: source address is required", models.ErrValidation)
	}

	d, err := s.store.TTL(ctx, blockKey(sourceAddress))
	if errors.Is(err, ttlstore.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}
