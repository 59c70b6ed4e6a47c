package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/ttlstore"
)

const (
	challengeKeyPrefix      = "push:"
	challengeIndexKeyPrefix = "push_user:"
)

// ChallengeService owns pending second-factor challenges. A challenge lives
// at most pushTTL and can be consumed once.
type ChallengeService struct {
	store   ttlstore.Store
	pushTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewChallengeService(store ttlstore.Store, pushTTL time.Duration, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{
		store:   store,
		pushTTL: pushTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source used for CreatedAt/ExpiresAt
func (s *ChallengeService) WithClock(now func() time.Time) *ChallengeService {
	s.now = now
	return s
}

func challengeKey(id string) string {
	return challengeKeyPrefix + id
}

func challengeIndexKey(username string) string {
	return challengeIndexKeyPrefix + username
}

// Create stores a pending challenge for signal with last as its baseline.
// role is carried through to the session token issued on approval.
func (s *ChallengeService) Create(ctx context.Context, signal, last models.AttemptSignal, failedAttemptCount int, role string) (string, error) {
	if signal.Username == "" {
		return "", fmt.Errorf("%w: username is required", models.ErrValidation)
	}

	now := s.now()
	challenge := &models.PendingChallenge{
		ChallengeID:        uuid.New().String(),
		Username:           signal.Username,
		Role:               role,
		CurrentAddress:     signal.SourceAddress,
		CurrentCountry:     signal.Country,
		CurrentDevice:      signal.Device,
		LastAddress:        last.SourceAddress,
		LastCountry:        last.Country,
		LastDevice:         last.Device,
		Status:             models.ChallengeStatusPending,
		FailedAttemptCount: failedAttemptCount,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.pushTTL),
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return "", fmt.Errorf("marshal challenge: %w", err)
	}

	if err := s.store.Set(ctx, challengeKey(challenge.ChallengeID), string(payload), s.pushTTL); err != nil {
		return "", err
	}

	// The index only serves ListPending; a failure here must not fail the login
	if err := s.store.AddMember(ctx, challengeIndexKey(signal.Username), challenge.ChallengeID, s.pushTTL); err != nil {
		s.logger.Warn("failed to index pending challenge",
			slog.String("push_id", challenge.ChallengeID),
			slog.Any("error", err))
	}

	return challenge.ChallengeID, nil
}

// Consume atomically reads and deletes a challenge. Unknown, expired, already
// consumed and malformed IDs all return models.ErrChallengeNotFound.
func (s *ChallengeService) Consume(ctx context.Context, challengeID string) (*models.PendingChallenge, error) {
	challengeID = strings.TrimSpace(challengeID)
	if _, err := uuid.Parse(challengeID); err != nil {
		s.logger.Info("challenge not found", slog.String("reason", "malformed_id"))
		return nil, models.ErrChallengeNotFound
	}

	payload, err := s.store.GetDel(ctx, challengeKey(challengeID))
	if errors.Is(err, ttlstore.ErrKeyNotFound) {
		s.logger.Info("challenge not found",
			slog.String("reason", "expired_or_consumed"),
			slog.String("push_id", challengeID))
		return nil, models.ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}

	var challenge models.PendingChallenge
	if err := json.Unmarshal([]byte(payload), &challenge); err != nil {
		s.logger.Error("discarding undecodable challenge",
			slog.String("push_id", challengeID),
			slog.Any("error", err))
		return nil, models.ErrChallengeNotFound
	}

	if err := s.store.RemoveMembers(ctx, challengeIndexKey(challenge.Username), challengeID); err != nil {
		s.logger.Warn("failed to unindex consumed challenge",
			slog.String("push_id", challengeID),
			slog.Any("error", err))
	}

	return &challenge, nil
}

// ListPending returns the user's live challenges, oldest first, without
// consuming them. Index entries whose challenge is gone are pruned.
func (s *ChallengeService) ListPending(ctx context.Context, username string) ([]*models.PendingChallenge, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrValidation)
	}

	ids, err := s.store.Members(ctx, challengeIndexKey(username))
	if err != nil {
		return nil, err
	}

	pending := make([]*models.PendingChallenge, 0, len(ids))
	var stale []string
	for _, id := range ids {
		payload, err := s.store.Get(ctx, challengeKey(id))
		if errors.Is(err, ttlstore.ErrKeyNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}

		var challenge models.PendingChallenge
		if err := json.Unmarshal([]byte(payload), &challenge); err != nil {
			s.logger.Warn("skipping undecodable challenge", slog.String("push_id", id), slog.Any("error", err))
			continue
		}
		pending = append(pending, &challenge)
	}

	if len(stale) > 0 {
		if err := s.store.RemoveMembers(ctx, challengeIndexKey(username), stale...); err != nil {
			s.logger.Warn("failed to prune challenge index", slog.String("username", username), slog.Any("error", err))
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

// PruneIndexes removes index entries for challenges that no longer exist
// across all users and returns how many were removed.
func (s *ChallengeService) PruneIndexes(ctx context.Context) (int, error) {
	keys, err := s.store.ScanKeys(ctx, challengeIndexKeyPrefix)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, key := range keys {
		ids, err := s.store.Members(ctx, key)
		if err != nil {
			return pruned, err
		}

		var stale []string
		for _, id := range ids {
			exists, err := s.store.Exists(ctx, challengeKey(id))
			if err != nil {
				return pruned, err
			}
			if !exists {
				stale = append(stale, id)
			}
		}

		if len(stale) > 0 {
			if err := s.store.RemoveMembers(ctx, key, stale...); err != nil {
				return pruned, err
			}
			pruned += len(stale)
		}
	}

	return pruned, nil
}
