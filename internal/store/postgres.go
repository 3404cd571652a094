package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"token-price-service/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS price_points (
	token_address TEXT        NOT NULL,
	network       TEXT        NOT NULL,
	ts            BIGINT      NOT NULL,
	price         DOUBLE PRECISION NOT NULL,
	market_cap    DOUBLE PRECISION,
	volume        DOUBLE PRECISION,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (token_address, network, ts)
);

CREATE TABLE IF NOT EXISTS price_queries (
	id             BIGSERIAL PRIMARY KEY,
	token_address  TEXT        NOT NULL,
	network        TEXT        NOT NULL,
	ts             BIGINT      NOT NULL,
	resolved_price DOUBLE PRECISION,
	source         TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bulk_fetch_jobs (
	id            TEXT PRIMARY KEY,
	token_address TEXT        NOT NULL,
	network       TEXT        NOT NULL,
	status        TEXT        NOT NULL,
	progress      INT         NOT NULL DEFAULT 0,
	total_days    INT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ
);
`

// PostgresStore is the durable backend, one table per record type with the
// identity key as the price point primary key.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, applies the schema and returns the
// ready store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// InsertPricePoint persists a point; conflicts on the identity key are no-ops
func (ps *PostgresStore) InsertPricePoint(ctx context.Context, p model.PricePoint) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO price_points (token_address, network, ts, price, market_cap, volume)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (token_address, network, ts) DO NOTHING`,
		p.TokenAddress, p.Network, p.Timestamp, p.Price, p.MarketCap, p.Volume,
	)
	return err
}

// GetPricePoint returns the exact-match point for the identity key
func (ps *PostgresStore) GetPricePoint(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT token_address, network, ts, price, market_cap, volume, created_at
		 FROM price_points
		 WHERE token_address = $1 AND network = $2 AND ts = $3`,
		tokenAddress, network, timestamp,
	)
	return scanPoint(row)
}

// NearestBefore returns the closest point strictly before timestamp
func (ps *PostgresStore) NearestBefore(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT token_address, network, ts, price, market_cap, volume, created_at
		 FROM price_points
		 WHERE token_address = $1 AND network = $2 AND ts < $3
		 ORDER BY ts DESC LIMIT 1`,
		tokenAddress, network, timestamp,
	)
	return scanPoint(row)
}

// NearestAfter returns the closest point strictly after timestamp
func (ps *PostgresStore) NearestAfter(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT token_address, network, ts, price, market_cap, volume, created_at
		 FROM price_points
		 WHERE token_address = $1 AND network = $2 AND ts > $3
		 ORDER BY ts ASC LIMIT 1`,
		tokenAddress, network, timestamp,
	)
	return scanPoint(row)
}

// AppendQuery appends one audit record to the query log
func (ps *PostgresStore) AppendQuery(ctx context.Context, q model.PriceQuery) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO price_queries (token_address, network, ts, resolved_price, source)
		 VALUES ($1, $2, $3, $4, $5)`,
		q.TokenAddress, q.Network, q.Timestamp, q.ResolvedPrice, string(q.Source),
	)
	return err
}

// RecentQueries returns up to limit audit records, most recent first
func (ps *PostgresStore) RecentQueries(ctx context.Context, limit int) ([]model.PriceQuery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ps.pool.Query(ctx,
		`SELECT token_address, network, ts, resolved_price, source, created_at
		 FROM price_queries
		 ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceQuery
	for rows.Next() {
		var q model.PriceQuery
		var source string
		if err := rows.Scan(&q.TokenAddress, &q.Network, &q.Timestamp, &q.ResolvedPrice, &source, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Source = model.Source(source)
		out = append(out, q)
	}
	return out, rows.Err()
}

// CreateJob persists a new job record
func (ps *PostgresStore) CreateJob(ctx context.Context, job model.BulkFetchJob) error {
	_, err := ps.pool.Exec(ctx,
		`INSERT INTO bulk_fetch_jobs (id, token_address, network, status, progress)
		 VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.TokenAddress, job.Network, string(job.Status), job.Progress,
	)
	return err
}

// GetJob returns a job by id
func (ps *PostgresStore) GetJob(ctx context.Context, id string) (model.BulkFetchJob, bool, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, token_address, network, status, progress, total_days, created_at, completed_at
		 FROM bulk_fetch_jobs WHERE id = $1`,
		id,
	)
	return scanJob(row)
}

// MarkJobProcessing transitions a pending job to processing. The WHERE clause
// makes the claim atomic across concurrent workers.
func (ps *PostgresStore) MarkJobProcessing(ctx context.Context, id string) (bool, error) {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE bulk_fetch_jobs SET status = 'processing'
		 WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetJobTotalDays records the length of the job's timestamp sequence
func (ps *PostgresStore) SetJobTotalDays(ctx context.Context, id string, totalDays int) error {
	tag, err := ps.pool.Exec(ctx,
		`UPDATE bulk_fetch_jobs SET total_days = $2 WHERE id = $1`,
		id, totalDays,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// UpdateJobProgress updates progress for a processing job, monotonically
func (ps *PostgresStore) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := ps.pool.Exec(ctx,
		`UPDATE bulk_fetch_jobs SET progress = $2
		 WHERE id = $1 AND status = 'processing' AND progress < $2`,
		id, progress,
	)
	return err
}

// CompleteJob transitions a processing job to completed
func (ps *PostgresStore) CompleteJob(ctx context.Context, id string) error {
	_, err := ps.pool.Exec(ctx,
		`UPDATE bulk_fetch_jobs
		 SET status = 'completed', progress = 100, completed_at = NOW()
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id,
	)
	return err
}

// FailJob transitions a job to failed, leaving progress untouched
func (ps *PostgresStore) FailJob(ctx context.Context, id string) error {
	_, err := ps.pool.Exec(ctx,
		`UPDATE bulk_fetch_jobs SET status = 'failed'
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		id,
	)
	return err
}

// ActiveJobs returns jobs whose status is pending or processing
func (ps *PostgresStore) ActiveJobs(ctx context.Context) ([]model.BulkFetchJob, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT id, token_address, network, status, progress, total_days, created_at, completed_at
		 FROM bulk_fetch_jobs
		 WHERE status IN ('pending', 'processing')
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BulkFetchJob
	for rows.Next() {
		var j model.BulkFetchJob
		var status string
		if err := rows.Scan(&j.ID, &j.TokenAddress, &j.Network, &status, &j.Progress, &j.TotalDays, &j.CreatedAt, &j.CompletedAt); err != nil {
			return nil, err
		}
		j.Status = model.JobStatus(status)
		out = append(out, j)
	}
	return out, rows.Err()
}

// NextPendingJob returns the oldest pending job, if any
func (ps *PostgresStore) NextPendingJob(ctx context.Context) (model.BulkFetchJob, bool, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, token_address, network, status, progress, total_days, created_at, completed_at
		 FROM bulk_fetch_jobs WHERE status = 'pending'
		 ORDER BY created_at ASC LIMIT 1`,
	)
	return scanJob(row)
}

// Ping verifies the database connection
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close releases the connection pool
func (ps *PostgresStore) Close() error {
	ps.pool.Close()
	return nil
}

// --- scan helpers ---

func scanPoint(row pgx.Row) (model.PricePoint, bool, error) {
	var p model.PricePoint
	err := row.Scan(&p.TokenAddress, &p.Network, &p.Timestamp, &p.Price, &p.MarketCap, &p.Volume, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PricePoint{}, false, nil
	}
	if err != nil {
		return model.PricePoint{}, false, err
	}
	return p, true, nil
}

func scanJob(row pgx.Row) (model.BulkFetchJob, bool, error) {
	var j model.BulkFetchJob
	var status string
	err := row.Scan(&j.ID, &j.TokenAddress, &j.Network, &status, &j.Progress, &j.TotalDays, &j.CreatedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.BulkFetchJob{}, false, nil
	}
	if err != nil {
		return model.BulkFetchJob{}, false, err
	}
	j.Status = model.JobStatus(status)
	return j, true, nil
}
