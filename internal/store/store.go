package store

import (
	"context"
	"errors"

	"token-price-service/internal/model"
)

// ErrJobNotFound is returned by job mutations targeting an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// Store is the durable, authoritative record of price points, query audit
// entries and backfill jobs. Price points are write-once per identity key;
// the audit log is append-only.
type Store interface {
	// InsertPricePoint persists a point. Inserting an identity key that
	// already exists is a no-op, never an overwrite.
	InsertPricePoint(ctx context.Context, p model.PricePoint) error

	// GetPricePoint returns the exact-match point for the identity key
	GetPricePoint(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error)

	// NearestBefore returns the closest point strictly before timestamp
	NearestBefore(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error)

	// NearestAfter returns the closest point strictly after timestamp
	NearestAfter(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error)

	// AppendQuery appends one audit record to the query log
	AppendQuery(ctx context.Context, q model.PriceQuery) error

	// RecentQueries returns up to limit audit records, most recent first
	RecentQueries(ctx context.Context, limit int) ([]model.PriceQuery, error)

	// CreateJob persists a new job record
	CreateJob(ctx context.Context, job model.BulkFetchJob) error

	// GetJob returns a job by id
	GetJob(ctx context.Context, id string) (model.BulkFetchJob, bool, error)

	// MarkJobProcessing transitions a pending job to processing. It returns
	// false when the job is missing or no longer pending, so only one worker
	// can claim a given job.
	MarkJobProcessing(ctx context.Context, id string) (bool, error)

	// SetJobTotalDays records the length of the job's timestamp sequence
	SetJobTotalDays(ctx context.Context, id string, totalDays int) error

	// UpdateJobProgress updates progress for a processing job. Progress never
	// moves backwards and stays within [0,100].
	UpdateJobProgress(ctx context.Context, id string, progress int) error

	// CompleteJob transitions a processing job to completed with progress 100
	// and a completion timestamp
	CompleteJob(ctx context.Context, id string) error

	// FailJob transitions a job to failed, leaving progress at its last value
	FailJob(ctx context.Context, id string) error

	// ActiveJobs returns jobs whose status is pending or processing
	ActiveJobs(ctx context.Context) ([]model.BulkFetchJob, error)

	// NextPendingJob returns the oldest pending job, if any. Claiming it is a
	// separate MarkJobProcessing call.
	NextPendingJob(ctx context.Context) (model.BulkFetchJob, bool, error)

	// Ping reports whether the backing engine is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying connections
	Close() error
}
