// Package metrics holds the Prometheus collectors for the decision engine.
package metrics

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const namespace = "trustgate"

type Metrics struct {
	registry *prometheus.Registry

	AuthDecisionsTotal     *prometheus.CounterVec
	RiskAssessmentsTotal   *prometheus.CounterVec
	BlocksAppliedTotal     *prometheus.CounterVec
	AlertsEmittedTotal     *prometheus.CounterVec
	AlertPublishFailures   *prometheus.CounterVec
	ChallengesPrunedTotal  prometheus.Counter
	JanitorRunsTotal       *prometheus.CounterVec
	JanitorDurationSeconds prometheus.Histogram
	HTTPRequestDuration    *prometheus.HistogramVec

	RedisPoolHits       prometheus.Counter
	RedisPoolMisses     prometheus.Counter
	RedisPoolTimeouts   prometheus.Counter
	RedisPoolStaleConns prometheus.Counter
	RedisPoolTotalConns prometheus.Gauge
	RedisPoolIdleConns  prometheus.Gauge

	DBPoolTotalConns    prometheus.Gauge
	DBPoolIdleConns     prometheus.Gauge
	DBPoolAcquiredConns prometheus.Gauge
	DBPoolMaxConns      prometheus.Gauge

	lastPoolStats *redis.PoolStats
}

// New registers every collector on a private registry along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AuthDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Authentication decisions by stage and outcome",
		}, []string{"stage", "outcome"}),
		RiskAssessmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Resolved challenges by final risk label",
		}, []string{"final_risk"}),
		BlocksAppliedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_applied_total",
			Help:      "Source address blocks applied by risk label",
		}, []string{"risk"}),
		AlertsEmittedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_emitted_total",
			Help:      "SOC alerts written to the ledger by reason",
		}, []string{"reason"}),
		AlertPublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_publish_failures_total",
			Help:      "Alert fan-out failures by sink",
		}, []string{"sink"}),
		ChallengesPrunedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_index_pruned_total",
			Help:      "Stale pending-challenge index entries removed",
		}),
		JanitorRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_runs_total",
			Help:      "Background janitor runs by status",
		}, []string{"status"}),
		JanitorDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "janitor_duration_seconds",
			Help:      "Duration of background janitor runs",
		}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method, route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RedisPoolHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_pool_hits_total",
			Help:      "Number of times a connection was found in the pool",
		}),
		RedisPoolMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_pool_misses_total",
			Help:      "Number of times a connection was not found in the pool",
		}),
		RedisPoolTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_pool_timeouts_total",
			Help:      "Number of times a connection was not obtained due to timeout",
		}),
		RedisPoolStaleConns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_pool_stale_conns_total",
			Help:      "Number of stale connections removed from the pool",
		}),
		RedisPoolTotalConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_pool_total_conns",
			Help:      "Number of total connections in the pool",
		}),
		RedisPoolIdleConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_pool_idle_conns",
			Help:      "Number of idle connections in the pool",
		}),
		DBPoolTotalConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_total_conns",
			Help:      "Total connections in the Postgres pool",
		}),
		DBPoolIdleConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_idle_conns",
			Help:      "Idle connections in the Postgres pool",
		}),
		DBPoolAcquiredConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_acquired_conns",
			Help:      "Connections currently checked out of the Postgres pool",
		}),
		DBPoolMaxConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_max_conns",
			Help:      "Configured maximum size of the Postgres pool",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncDecision(stage, outcome string) {
	m.AuthDecisionsTotal.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) IncAssessment(finalRisk string) {
	m.RiskAssessmentsTotal.WithLabelValues(finalRisk).Inc()
}

func (m *Metrics) IncBlock(risk string) {
	m.BlocksAppliedTotal.WithLabelValues(risk).Inc()
}

func (m *Metrics) IncAlert(reason string) {
	m.AlertsEmittedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncAlertPublishFailure(sink string) {
	m.AlertPublishFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) AddChallengesPruned(n int) {
	m.ChallengesPrunedTotal.Add(float64(n))
}

func (m *Metrics) ObserveJanitorRun(status string, seconds float64) {
	m.JanitorRunsTotal.WithLabelValues(status).Inc()
	m.JanitorDurationSeconds.Observe(seconds)
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// RecordRedisPoolStats updates pool gauges and adds counter deltas since the
// previous call. Not safe for concurrent use; the janitor is the only caller.
func (m *Metrics) RecordRedisPoolStats(stats *redis.PoolStats) {
	if stats == nil {
		return
	}

	m.RedisPoolTotalConns.Set(float64(stats.TotalConns))
	m.RedisPoolIdleConns.Set(float64(stats.IdleConns))

	var prev redis.PoolStats
	if m.lastPoolStats != nil {
		prev = *m.lastPoolStats
	}

	addDelta(m.RedisPoolHits, stats.Hits, prev.Hits)
	addDelta(m.RedisPoolMisses, stats.Misses, prev.Misses)
	addDelta(m.RedisPoolTimeouts, stats.Timeouts, prev.Timeouts)
	addDelta(m.RedisPoolStaleConns, stats.StaleConns, prev.StaleConns)

	snapshot := *stats
	m.lastPoolStats = &snapshot
}

// RecordDBPoolStats copies a pgxpool snapshot into the pool gauges
func (m *Metrics) RecordDBPoolStats(stat *pgxpool.Stat) {
	if stat == nil {
		return
	}

	m.DBPoolTotalConns.Set(float64(stat.TotalConns()))
	m.DBPoolIdleConns.Set(float64(stat.IdleConns()))
	m.DBPoolAcquiredConns.Set(float64(stat.AcquiredConns()))
	m.DBPoolMaxConns.Set(float64(stat.MaxConns()))
}

func addDelta(c prometheus.Counter, current, previous uint32) {
	if current > previous {
		c.Add(float64(current - previous))
	}
}
