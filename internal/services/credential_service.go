package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/munai7/TrustGate/internal/auth"
	"github.com/munai7/TrustGate/internal/models"
	pkgauth "github.com/munai7/TrustGate/pkg/auth"
)

// ErrUnknownUser is an ErrInvalidCredentials for a username with no
// credential entry. Callers must not reveal the difference to clients.
var ErrUnknownUser = fmt.Errorf("%w: unknown user", models.ErrInvalidCredentials)

// UserRepository is the credential store
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpsertPassword(ctx context.Context, username, passwordHash, role string) error
}

// SeedUser is a credential to provision at startup
type SeedUser struct {
	Username string
	Password string
	Role     string
}

// DemoUsers are the fixed accounts provisioned when demo seeding is enabled
func DemoUsers() []SeedUser {
	return []SeedUser{
		{Username: "alice", Password: "password1", Role: models.RoleUser},
		{Username: "bob", Password: "password2", Role: models.RoleUser},
		{Username: "charlie", Password: "password3", Role: models.RoleUser},
		{Username: "dave", Password: "password4", Role: models.RoleUser},
		{Username: "eve", Password: "password5", Role: models.RoleUser},
	}
}

// CredentialService verifies username/password pairs against bcrypt hashes
type CredentialService struct {
	repo       UserRepository
	timing     *auth.TimingDelay
	bcryptCost int
	logger     *slog.Logger
}

func NewCredentialService(repo UserRepository, timing *auth.TimingDelay, bcryptCost int, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		repo:       repo,
		timing:     timing,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Verify returns the user when password matches. Unknown users return
// ErrUnknownUser; wrong passwords and disabled accounts return
// models.ErrInvalidCredentials. Failures are padded to a common latency.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (user *models.User, err error) {
	start := time.Now()
	defer func() {
		s.timing.WaitFrom(start, err == nil)
	}()

	user, err = s.repo.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		pkgauth.CompareDummy(password)
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, pkgauth.ErrPasswordMismatch) {
			s.logger.Error("unusable password hash", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return nil, models.ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		s.logger.Info("login rejected for inactive account",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// Seed creates or re-hashes each user
func (s *CredentialService) Seed(ctx context.Context, users []SeedUser) error {
	for _, u := range users {
		hash, err := pkgauth.HashPassword(u.Password, s.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}

		role := u.Role
		if role == "" {
			role = models.RoleUser
		}

		if err := s.repo.UpsertPassword(ctx, u.Username, hash, role); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	s.logger.Info("seeded users", slog.Int("count", len(users)))
	return nil
}
