//go:build integration

package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/munai7/TrustGate/internal/database"
	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/repositories"
)

// setupDB starts a PostgreSQL container and applies the embedded migrations
func setupDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("trustgate"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.FromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestRepositories(t *testing.T) {
	db := setupDB(t)

	t.Run("attempt ledger", func(t *testing.T) {
		repo := repositories.NewAttemptRepository(db)
		ctx := context.Background()

		_, err := repo.Latest(ctx, "alice")
		assert.ErrorIs(t, err, models.ErrNotFound)

		first := models.NewAttemptRecord(models.AttemptSignal{
			Username: "alice", SourceAddress: "10.0.0.1", Country: "SA", Device: "dev-a",
		}, 0, string(models.RiskNormal))
		require.NoError(t, repo.Append(ctx, first))
		assert.NotZero(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		second := models.NewAttemptRecord(models.AttemptSignal{
			Username: "alice", SourceAddress: "10.0.0.2", Country: "US", Device: "dev-b",
		}, 1, "failed_auth")
		require.NoError(t, repo.Append(ctx, second))

		latest, err := repo.Latest(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.Equal(t, 1, latest.FailedAttemptCount)
		assert.Equal(t, "failed_auth", latest.LastRiskLabel)

		history, err := repo.History(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, second.ID, history[0].ID)
		assert.Equal(t, first.ID, history[1].ID)
	})

	t.Run("alerts newest first", func(t *testing.T) {
		repo := repositories.NewAlertRepository(db)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		for i, user := range []string{"bob", "carol", "dave"} {
			require.NoError(t, repo.Create(ctx, &models.Alert{
				ID:            uuid.New(),
				Username:      user,
				SourceAddress: "203.0.113.7",
				Country:       "US",
				Device:        "dev",
				Outcome:       "deny",
				RuleLabel:     models.RiskHigh,
				MLLabel:       models.RiskHigh,
				Reason:        models.AlertReasonEscalation,
				CreatedAt:     base.Add(time.Duration(i) * time.Second),
			}))
		}

		alerts, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, "dave", alerts[0].Username)
		assert.Equal(t, "carol", alerts[1].Username)
		assert.Equal(t, models.RiskHigh, alerts[0].RuleLabel)
	})

	t.Run("user upsert", func(t *testing.T) {
		repo := repositories.NewUserRepository(db)
		ctx := context.Background()

		_, err := repo.GetByUsername(ctx, "erin")
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, repo.UpsertPassword(ctx, "erin", "hash-1", models.RoleUser))
		require.NoError(t, repo.UpsertPassword(ctx, "erin", "hash-2", models.RoleAdmin))

		user, err := repo.GetByUsername(ctx, "erin")
		require.NoError(t, err)
		assert.Equal(t, "hash-2", user.PasswordHash)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.Equal(t, models.UserStatusActive, user.Status)
	})
}
