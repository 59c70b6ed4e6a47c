package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const runTimeout = 30 * time.Second

// IndexPruner drops per-user challenge index entries whose challenge expired
type IndexPruner interface {
	PruneIndexes(ctx context.Context) (int, error)
}

// JanitorMetrics is the subset of *metrics.Metrics the janitor reports to
type JanitorMetrics interface {
	AddChallengesPruned(n int)
	ObserveJanitorRun(status string, seconds float64)
	RecordRedisPoolStats(stats *redis.PoolStats)
	RecordDBPoolStats(stat *pgxpool.Stat)
}

// PoolStatser exposes connection pool statistics; *redis.Client implements it
type PoolStatser interface {
	PoolStats() *redis.PoolStats
}

// DBStatser exposes Postgres pool statistics; *database.DB implements it
type DBStatser interface {
	Stats() *pgxpool.Stat
}

// Janitor periodically prunes stale challenge index entries and samples
// Redis and Postgres pool statistics. Challenges, blocks and rate windows expire on their
// own; only the secondary index needs sweeping.
type Janitor struct {
	pruner   IndexPruner
	metrics  JanitorMetrics
	pool     PoolStatser
	db       DBStatser
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewJanitor creates a janitor. metrics and pool may be nil.
func NewJanitor(pruner IndexPruner, metrics JanitorMetrics, pool PoolStatser, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		pruner:   pruner,
		metrics:  metrics,
		pool:     pool,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// WithDB sets the Postgres pool sampled after each sweep
func (j *Janitor) WithDB(db DBStatser) *Janitor {
	j.db = db
	return j
}

// Start runs until ctx is cancelled or Stop is called
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on startup
	j.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopCh:
			j.logger.Info("janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		}
	}
}

// RunOnce performs a single sweep
func (j *Janitor) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	pruned, err := j.pruner.PruneIndexes(runCtx)
	elapsed := time.Since(start).Seconds()

	status := "ok"
	if err != nil {
		status = "error"
		j.logger.Error("failed to prune challenge indexes", slog.Any("error", err), slog.Int("pruned", pruned))
	} else if pruned > 0 {
		j.logger.Info("challenge index prune completed", slog.Int("pruned", pruned))
	}

	if j.metrics == nil {
		return
	}
	j.metrics.AddChallengesPruned(pruned)
	j.metrics.ObserveJanitorRun(status, elapsed)
	if j.pool != nil {
		j.metrics.RecordRedisPoolStats(j.pool.PoolStats())
	}
	if j.db != nil {
		j.metrics.RecordDBPoolStats(j.db.Stats())
	}
}

// Stop signals the janitor to stop. Safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}
