package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munai7/TrustGate/internal/database"
	"github.com/munai7/TrustGate/internal/models"
)

// AttemptRepository is the append-only attempt history ledger
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{pool: db.Pool}
}

// Append writes a new record and fills its ID and CreatedAt
func (r *AttemptRepository) Append(ctx context.Context, record *models.AttemptRecord) error {
	query := `
		INSERT INTO attempts (username, source_address, country, device, failed_attempt_count, last_risk_label)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		record.Username,
		record.SourceAddress,
		record.Country,
		record.Device,
		record.FailedAttemptCount,
		record.LastRiskLabel,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", database.MapPostgresError(err))
	}

	return nil
}

// Latest returns the newest record for username, or models.ErrNotFound
func (r *AttemptRepository) Latest(ctx context.Context, username string) (*models.AttemptRecord, error) {
	query := `
		SELECT id, username, source_address, country, device, failed_attempt_count, last_risk_label, created_at
		FROM attempts WHERE username = $1
		ORDER BY id DESC LIMIT 1
	`

	var rec models.AttemptRecord
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&rec.ID, &rec.Username, &rec.SourceAddress, &rec.Country, &rec.Device,
		&rec.FailedAttemptCount, &rec.LastRiskLabel, &rec.CreatedAt,
	)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load latest attempt: %w", mapped)
	}

	return &rec, nil
}

// History lists records for username, newest first
func (r *AttemptRepository) History(ctx context.Context, username string, limit int) ([]*models.AttemptRecord, error) {
	query := `
		SELECT id, username, source_address, country, device, failed_attempt_count, last_risk_label, created_at
		FROM attempts WHERE username = $1
		ORDER BY id DESC LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	records := make([]*models.AttemptRecord, 0)
	for rows.Next() {
		var rec models.AttemptRecord
		if err := rows.Scan(
			&rec.ID, &rec.Username, &rec.SourceAddress, &rec.Country, &rec.Device,
			&rec.FailedAttemptCount, &rec.LastRiskLabel, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", database.MapPostgresError(err))
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", database.MapPostgresError(err))
	}

	return records, nil
}
