package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munai7/TrustGate/internal/database"
	"github.com/munai7/TrustGate/internal/models"
)

// AlertRepository persists SOC alerts
type AlertRepository struct {
	pool *pgxpool.Pool
}

func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{pool: db.Pool}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO soc_alerts (id, username, source_address, country, device, outcome, rule_label, ml_label, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.Username,
		alert.SourceAddress,
		alert.Country,
		alert.Device,
		alert.Outcome,
		string(alert.RuleLabel),
		string(alert.MLLabel),
		alert.Reason,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", database.MapPostgresError(err))
	}

	return nil
}

// ListRecent returns up to limit alerts, newest first
func (r *AlertRepository) ListRecent(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := `
		SELECT id, username, source_address, country, device, outcome, rule_label, ml_label, reason, created_at
		FROM soc_alerts ORDER BY created_at DESC LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	alerts := make([]*models.Alert, 0)
	for rows.Next() {
		var a models.Alert
		var ruleLabel, mlLabel string
		if err := rows.Scan(
			&a.ID, &a.Username, &a.SourceAddress, &a.Country, &a.Device,
			&a.Outcome, &ruleLabel, &mlLabel, &a.Reason, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", database.MapPostgresError(err))
		}
		a.RuleLabel = models.RiskLabel(ruleLabel)
		a.MLLabel = models.RiskLabel(mlLabel)
		alerts = append(alerts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", database.MapPostgresError(err))
	}

	return alerts, nil
}
