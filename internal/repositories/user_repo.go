package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munai7/TrustGate/internal/database"
	"github.com/munai7/TrustGate/internal/models"
)

// UserRepository is the credential store
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Status,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, role, status, created_at, updated_at
		FROM users WHERE username = $1
	`

	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

// UpsertPassword creates the user or replaces its hash, used for seeding
func (r *UserRepository) UpsertPassword(ctx context.Context, username, passwordHash, role string) error {
	query := `
		INSERT INTO users (id, username, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, uuid.New().String(), username, passwordHash, role, models.UserStatusActive)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", database.MapPostgresError(err))
	}

	return nil
}
