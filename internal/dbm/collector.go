package dbm

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/last9/otelkit/config"
	"github.com/last9/otelkit/pkg/logger"
)

var (
	pgQueryCalls       metric.Int64Counter
	pgQueryTime        metric.Float64Counter
	pgQueryRows        metric.Int64Counter
	pgBlocksHit        metric.Int64Counter
	pgBlocksRead       metric.Int64Counter
	pgActiveSessions   metric.Int64Gauge
	pgWaitEvents       metric.Int64Gauge
	pgBlockingSessions metric.Int64Gauge
)

// InitDBMMetrics registers the postgresql.* instruments.
func InitDBMMetrics(meter metric.Meter) error {
	var err error

	pgQueryCalls, err = meter.Int64Counter(
		"postgresql.queries.calls",
		metric.WithDescription("Statement executions per signature"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	pgQueryTime, err = meter.Float64Counter(
		"postgresql.queries.time",
		metric.WithDescription("Statement execution time per signature"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	pgQueryRows, err = meter.Int64Counter(
		"postgresql.queries.rows",
		metric.WithDescription("Rows returned or affected per signature"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	pgBlocksHit, err = meter.Int64Counter(
		"postgresql.blocks.hit",
		metric.WithDescription("Shared buffer hits per signature"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	pgBlocksRead, err = meter.Int64Counter(
		"postgresql.blocks.read",
		metric.WithDescription("Shared blocks read from disk per signature"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	pgActiveSessions, err = meter.Int64Gauge(
		"postgresql.activity.sessions",
		metric.WithDescription("Active client sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	pgWaitEvents, err = meter.Int64Gauge(
		"postgresql.activity.wait_events",
		metric.WithDescription("Sessions grouped by wait event"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	pgBlockingSessions, err = meter.Int64Gauge(
		"postgresql.activity.blocking_sessions",
		metric.WithDescription("Sessions blocked on a lock"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// ActivitySample is one row from pg_stat_activity.
type ActivitySample struct {
	PID             int     `gorm:"column:pid"`
	Database        string  `gorm:"column:database"`
	Username        string  `gorm:"column:username"`
	ApplicationName string  `gorm:"column:application_name"`
	State           string  `gorm:"column:state"`
	WaitEventType   string  `gorm:"column:wait_event_type"`
	WaitEvent       string  `gorm:"column:wait_event"`
	Query           string  `gorm:"column:query"`
	DurationMS      float64 `gorm:"column:duration_ms"`
}

// StatementRow is one row from pg_stat_statements.
type StatementRow struct {
	QueryID     int64   `gorm:"column:queryid"`
	Database    string  `gorm:"column:database"`
	Username    string  `gorm:"column:username"`
	Query       string  `gorm:"column:query"`
	Calls       int64   `gorm:"column:calls"`
	TotalTimeMS float64 `gorm:"column:total_time_ms"`
	Rows        int64   `gorm:"column:rows"`
	SharedHit   int64   `gorm:"column:shared_blks_hit"`
	SharedRead  int64   `gorm:"column:shared_blks_read"`
}

// StatementDelta is the per-interval change for one statement.
type StatementDelta struct {
	QueryID     int64
	Database    string
	Signature   string
	Calls       int64
	TotalTimeMS float64
	Rows        int64
	SharedHit   int64
	SharedRead  int64
}

type waitEventRow struct {
	Database      string `gorm:"column:database"`
	WaitEventType string `gorm:"column:wait_event_type"`
	WaitEvent     string `gorm:"column:wait_event"`
	Count         int64  `gorm:"column:count"`
}

type blockingRow struct {
	Database      string `gorm:"column:database"`
	BlockedPID    int    `gorm:"column:blocked_pid"`
	BlockedUser   string `gorm:"column:blocked_user"`
	BlockedQuery  string `gorm:"column:blocked_query"`
	BlockingPID   int    `gorm:"column:blocking_pid"`
	BlockingUser  string `gorm:"column:blocking_user"`
	BlockingQuery string `gorm:"column:blocking_query"`
	LockType      string `gorm:"column:lock_type"`
}

type statementBaseline struct {
	Calls       int64
	TotalTimeMS float64
	Rows        int64
	SharedHit   int64
	SharedRead  int64
}

// Collector polls pg_stat_activity and pg_stat_statements on an interval and
// exports the results as OTel metrics and logs.
type Collector struct {
	db *gorm.DB

	interval          time.Duration
	slowThresholdMS   float64
	explainSampleRate int
	maxExplains       int
	maxQueryLength    int

	baselines    map[int64]statementBaseline
	explainCount map[string]int
}

func NewCollector(db *gorm.DB) *Collector {
	return &Collector{
		db:                db,
		interval:          time.Duration(config.Cfg.DBMCollectionInterval) * time.Second,
		slowThresholdMS:   float64(config.Cfg.DBMSlowQueryThresholdMS),
		explainSampleRate: config.Cfg.DBMExplainSampleRate,
		maxExplains:       config.Cfg.DBMMaxExplainsPerCycle,
		maxQueryLength:    config.Cfg.DBMMaxQueryLength,
		baselines:         make(map[int64]statementBaseline),
		explainCount:      make(map[string]int),
	}
}

// Run collects on the configured interval until the context is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	logger.Logger.Info("DBM collector started",
		zap.Duration("interval", c.interval),
		zap.Float64("slow_query_threshold_ms", c.slowThresholdMS),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("DBM collector stopped")
			return ctx.Err()
		case <-ticker.C:
			c.collectOnce(ctx)
		}
	}
}

// collectOnce runs one cycle. Each stage logs its own failure and the cycle
// continues, matching agent behavior where a missing extension must not
// stop activity sampling.
func (c *Collector) collectOnce(ctx context.Context) {
	samples := c.collectActivity(ctx)
	c.collectWaitEvents(ctx)
	c.collectBlocking(ctx)
	c.collectStatements(ctx)
	c.collectExplains(ctx, samples)
}

func (c *Collector) collectActivity(ctx context.Context) []ActivitySample {
	var rows []ActivitySample
	err := c.db.WithContext(ctx).Raw(`
SELECT
    pid,
    COALESCE(datname, '') AS database,
    COALESCE(usename, '') AS username,
    COALESCE(application_name, '') AS application_name,
    COALESCE(state, '') AS state,
    COALESCE(wait_event_type, '') AS wait_event_type,
    COALESCE(wait_event, '') AS wait_event,
    left(query, ?) AS query,
    COALESCE(EXTRACT(EPOCH FROM (now() - query_start)) * 1000, 0) AS duration_ms
FROM pg_stat_activity
WHERE state != 'idle'
  AND pid != pg_backend_pid()
  AND query NOT LIKE '%pg_stat_activity%'
  AND backend_type = 'client backend'
ORDER BY duration_ms DESC
LIMIT 100`, c.maxQueryLength).Scan(&rows).Error
	if err != nil {
		logger.Logger.Error("Failed to collect query samples", zap.Error(err))
		return nil
	}

	pgActiveSessions.Record(ctx, int64(len(rows)))

	for _, row := range rows {
		if row.Query == "" {
			continue
		}
		if row.DurationMS >= c.slowThresholdMS {
			logger.Logger.Info("Slow query sample",
				zap.String("query_signature", QuerySignature(row.Query)),
				zap.String("database", row.Database),
				zap.String("username", row.Username),
				zap.Int("pid", row.PID),
				zap.Float64("duration_ms", row.DurationMS),
				zap.String("state", row.State),
				zap.String("wait_event_type", row.WaitEventType),
				zap.String("wait_event", row.WaitEvent),
				zap.String("query", NormalizeQuery(row.Query)),
			)
		}
	}

	return rows
}

func (c *Collector) collectWaitEvents(ctx context.Context) {
	var rows []waitEventRow
	err := c.db.WithContext(ctx).Raw(`
SELECT
    COALESCE(datname, '') AS database,
    wait_event_type,
    wait_event,
    count(*) AS count
FROM pg_stat_activity
WHERE wait_event IS NOT NULL
  AND state = 'active'
  AND backend_type = 'client backend'
GROUP BY datname, wait_event_type, wait_event
ORDER BY count DESC
LIMIT 50`).Scan(&rows).Error
	if err != nil {
		logger.Logger.Error("Failed to collect wait events", zap.Error(err))
		return
	}

	for _, row := range rows {
		pgWaitEvents.Record(ctx, row.Count, metric.WithAttributes(
			attribute.String("db.name", row.Database),
			attribute.String("wait_event_type", row.WaitEventType),
			attribute.String("wait_event", row.WaitEvent),
		))
	}
}

func (c *Collector) collectBlocking(ctx context.Context) {
	var rows []blockingRow
	err := c.db.WithContext(ctx).Raw(`
SELECT
    COALESCE(database, '') AS database,
    blocked_pid,
    COALESCE(blocked_user, '') AS blocked_user,
    left(blocked_query, ?) AS blocked_query,
    blocking_pid,
    COALESCE(blocking_user, '') AS blocking_user,
    left(blocking_query, ?) AS blocking_query,
    lock_type
FROM otel_monitor.blocking_queries
LIMIT 50`, c.maxQueryLength, c.maxQueryLength).Scan(&rows).Error
	if err != nil {
		// schema not installed; fall back to the direct pg_locks join
		err = c.db.WithContext(ctx).Raw(`
SELECT
    COALESCE(blocked_activity.datname, '') AS database,
    blocked_locks.pid AS blocked_pid,
    COALESCE(blocked_activity.usename, '') AS blocked_user,
    left(blocked_activity.query, ?) AS blocked_query,
    blocking_locks.pid AS blocking_pid,
    COALESCE(blocking_activity.usename, '') AS blocking_user,
    left(blocking_activity.query, ?) AS blocking_query,
    blocked_locks.locktype AS lock_type
FROM pg_catalog.pg_locks blocked_locks
JOIN pg_catalog.pg_stat_activity blocked_activity
    ON blocked_activity.pid = blocked_locks.pid
JOIN pg_catalog.pg_locks blocking_locks
    ON blocking_locks.locktype = blocked_locks.locktype
    AND blocking_locks.database IS NOT DISTINCT FROM blocked_locks.database
    AND blocking_locks.relation IS NOT DISTINCT FROM blocked_locks.relation
    AND blocking_locks.pid != blocked_locks.pid
JOIN pg_catalog.pg_stat_activity blocking_activity
    ON blocking_activity.pid = blocking_locks.pid
WHERE NOT blocked_locks.granted
LIMIT 50`, c.maxQueryLength, c.maxQueryLength).Scan(&rows).Error
	}
	if err != nil {
		logger.Logger.Error("Failed to collect blocking queries", zap.Error(err))
		return
	}

	pgBlockingSessions.Record(ctx, int64(len(rows)))

	for _, row := range rows {
		logger.Logger.Warn("Blocking query detected",
			zap.String("database", row.Database),
			zap.Int("blocked_pid", row.BlockedPID),
			zap.String("blocked_user", row.BlockedUser),
			zap.String("blocked_query_signature", QuerySignature(row.BlockedQuery)),
			zap.Int("blocking_pid", row.BlockingPID),
			zap.String("blocking_user", row.BlockingUser),
			zap.String("blocking_query_signature", QuerySignature(row.BlockingQuery)),
			zap.String("lock_type", row.LockType),
		)
	}
}

func (c *Collector) collectStatements(ctx context.Context) {
	var rows []StatementRow
	err := c.db.WithContext(ctx).Raw(`
SELECT
    s.queryid,
    d.datname AS database,
    COALESCE(pg_get_userbyid(s.userid), '') AS username,
    left(s.query, ?) AS query,
    s.calls,
    s.total_exec_time AS total_time_ms,
    s.rows,
    s.shared_blks_hit,
    s.shared_blks_read
FROM pg_stat_statements s
JOIN pg_database d ON d.oid = s.dbid
WHERE s.calls > 0
  AND d.datname NOT IN ('template0', 'template1', 'rdsadmin')
ORDER BY s.total_exec_time DESC
LIMIT 200`, c.maxQueryLength).Scan(&rows).Error
	if err != nil {
		logger.Logger.Error("Failed to collect query metrics", zap.Error(err))
		return
	}

	deltas := c.ComputeDeltas(rows)
	for _, d := range deltas {
		attrs := metric.WithAttributes(
			attribute.String("db.name", d.Database),
			attribute.String("query_signature", d.Signature),
		)
		pgQueryCalls.Add(ctx, d.Calls, attrs)
		pgQueryTime.Add(ctx, d.TotalTimeMS, attrs)
		pgQueryRows.Add(ctx, d.Rows, attrs)
		pgBlocksHit.Add(ctx, d.SharedHit, attrs)
		pgBlocksRead.Add(ctx, d.SharedRead, attrs)
	}
}

// ComputeDeltas diffs the cumulative pg_stat_statements counters against the
// previous cycle. The first observation of a statement only seeds the
// baseline. A counter going backwards means the stats were reset, so the
// statement is re-baselined and skipped.
func (c *Collector) ComputeDeltas(rows []StatementRow) []StatementDelta {
	deltas := make([]StatementDelta, 0, len(rows))

	for _, row := range rows {
		prev, seen := c.baselines[row.QueryID]

		c.baselines[row.QueryID] = statementBaseline{
			Calls:       row.Calls,
			TotalTimeMS: row.TotalTimeMS,
			Rows:        row.Rows,
			SharedHit:   row.SharedHit,
			SharedRead:  row.SharedRead,
		}

		if !seen || row.Calls < prev.Calls {
			continue
		}
		if row.Calls == prev.Calls {
			// no executions since the last cycle
			continue
		}

		deltas = append(deltas, StatementDelta{
			QueryID:     row.QueryID,
			Database:    row.Database,
			Signature:   QuerySignature(row.Query),
			Calls:       row.Calls - prev.Calls,
			TotalTimeMS: row.TotalTimeMS - prev.TotalTimeMS,
			Rows:        row.Rows - prev.Rows,
			SharedHit:   row.SharedHit - prev.SharedHit,
			SharedRead:  row.SharedRead - prev.SharedRead,
		})
	}

	return deltas
}

var explainable = []string{"SELECT", "INSERT", "UPDATE", "DELETE"}

func canExplain(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))
	for _, kw := range explainable {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// collectExplains gathers EXPLAIN plans for slow samples, one in every
// explainSampleRate occurrences per signature, capped per cycle.
func (c *Collector) collectExplains(ctx context.Context, samples []ActivitySample) {
	collected := 0

	for _, sample := range samples {
		if collected >= c.maxExplains {
			break
		}
		if sample.DurationMS < c.slowThresholdMS || !canExplain(sample.Query) {
			continue
		}

		sig := QuerySignature(sample.Query)
		n := c.explainCount[sig]
		c.explainCount[sig] = n + 1
		if n%c.explainSampleRate != 0 {
			continue
		}

		var result struct {
			Explain string `gorm:"column:explain"`
		}
		err := c.db.WithContext(ctx).
			Raw(`SELECT explain::text AS explain FROM otel_monitor.explain_statement(?)`, sample.Query).
			Scan(&result).Error
		if err != nil {
			// explain failures are expected for statements with parameters
			logger.Logger.Debug("Could not explain query",
				zap.String("query_signature", sig),
				zap.Error(err),
			)
			continue
		}
		if result.Explain == "" {
			continue
		}

		logger.Logger.Info("Explain plan",
			zap.String("query_signature", sig),
			zap.String("database", sample.Database),
			zap.Float64("duration_ms", sample.DurationMS),
			zap.String("plan", result.Explain),
		)
		collected++
	}
}
