// Package postgres persists run summaries in Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
)

// DefaultTable holds run summaries when no table is configured.
const DefaultTable = "monitor_runs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool used by RunStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// RunStore writes one row per monitored run.
type RunStore struct {
	pool  Pool
	table string
}

// New connects a pool and returns a RunStore.
func New(ctx context.Context, cfg Config) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool Pool, table string) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RunStore{pool: pool, table: table}, nil
}

// Close releases the pool.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the summary table when it does not exist.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	job_id TEXT NOT NULL,
	name TEXT NOT NULL,
	run INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	execution_time_seconds DOUBLE PRECISION NOT NULL,
	avg_cpu_util DOUBLE PRECISION NOT NULL,
	avg_ram_util DOUBLE PRECISION NOT NULL,
	samples INTEGER NOT NULL,
	PRIMARY KEY (job_id, name, run)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// SaveRun upserts the summary of one run.
func (s *RunStore) SaveRun(ctx context.Context, sum monitor.Summary) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	name,
	run,
	started_at,
	execution_time_seconds,
	avg_cpu_util,
	avg_ram_util,
	samples
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (job_id, name, run) DO UPDATE SET
	started_at = EXCLUDED.started_at,
	execution_time_seconds = EXCLUDED.execution_time_seconds,
	avg_cpu_util = EXCLUDED.avg_cpu_util,
	avg_ram_util = EXCLUDED.avg_ram_util,
	samples = EXCLUDED.samples`, s.table)

	_, err := s.pool.Exec(ctx, query,
		sum.JobID,
		sum.Name,
		sum.Run,
		sum.StartedAt,
		sum.ExecutionTime,
		sum.AvgCPU,
		sum.AvgRAM,
		sum.Samples,
	)
	if err != nil {
		return fmt.Errorf("insert run %d of %s: %w", sum.Run, sum.Name, err)
	}
	return nil
}

// ListRuns returns the most recent summaries.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]monitor.Summary, error) {
	query := fmt.Sprintf(`
SELECT job_id, name, run, started_at, execution_time_seconds, avg_cpu_util, avg_ram_util, samples
FROM %s
ORDER BY started_at DESC, run DESC
LIMIT $1`, s.table)
	return s.queryRuns(ctx, query, defaultLimit(limit))
}

// ListJobRuns returns the most recent summaries of one job.
func (s *RunStore) ListJobRuns(ctx context.Context, jobID string, limit int) ([]monitor.Summary, error) {
	query := fmt.Sprintf(`
SELECT job_id, name, run, started_at, execution_time_seconds, avg_cpu_util, avg_ram_util, samples
FROM %s
WHERE job_id = $1
ORDER BY started_at DESC, run DESC
LIMIT $2`, s.table)
	return s.queryRuns(ctx, query, jobID, defaultLimit(limit))
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func (s *RunStore) queryRuns(ctx context.Context, query string, args ...any) ([]monitor.Summary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []monitor.Summary
	for rows.Next() {
		var sum monitor.Summary
		if err := rows.Scan(
			&sum.JobID,
			&sum.Name,
			&sum.Run,
			&sum.StartedAt,
			&sum.ExecutionTime,
			&sum.AvgCPU,
			&sum.AvgRAM,
			&sum.Samples,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}
