package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"token-price-service/internal/model"
)

// MemoryStore keeps everything in process memory with a sorted per-series
// index for nearest-neighbor lookups. Used for development and tests; the
// contract is identical to the Postgres backend.
type MemoryStore struct {
	mutex   sync.RWMutex
	points  map[string]model.PricePoint   // identity key -> point
	series  map[string][]model.PricePoint // (token,network) -> points sorted by timestamp
	queries []model.PriceQuery
	jobs    map[string]*model.BulkFetchJob
	jobIDs  []string // creation order, for NextPendingJob
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		points: make(map[string]model.PricePoint),
		series: make(map[string][]model.PricePoint),
		jobs:   make(map[string]*model.BulkFetchJob),
	}
}

func seriesKey(tokenAddress, network string) string {
	return tokenAddress + ":" + network
}

// InsertPricePoint persists a point; duplicates on the identity key are a no-op
func (ms *MemoryStore) InsertPricePoint(_ context.Context, p model.PricePoint) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	key := p.Key()
	if _, exists := ms.points[key]; exists {
		return nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	ms.points[key] = p

	sk := seriesKey(p.TokenAddress, p.Network)
	series := ms.series[sk]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp >= p.Timestamp
	})
	series = append(series, model.PricePoint{})
	copy(series[idx+1:], series[idx:])
	series[idx] = p
	ms.series[sk] = series

	return nil
}

// GetPricePoint returns the exact-match point for the identity key
func (ms *MemoryStore) GetPricePoint(_ context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	p, ok := ms.points[model.PriceKey(tokenAddress, network, timestamp)]
	return p, ok, nil
}

// NearestBefore returns the closest point strictly before timestamp
func (ms *MemoryStore) NearestBefore(_ context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	series := ms.series[seriesKey(tokenAddress, network)]
	// First index with ts >= timestamp; the point before it is the answer.
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp >= timestamp
	})
	if idx == 0 {
		return model.PricePoint{}, false, nil
	}
	return series[idx-1], true, nil
}

// NearestAfter returns the closest point strictly after timestamp
func (ms *MemoryStore) NearestAfter(_ context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, bool, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	series := ms.series[seriesKey(tokenAddress, network)]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp > timestamp
	})
	if idx == len(series) {
		return model.PricePoint{}, false, nil
	}
	return series[idx], true, nil
}

// AppendQuery appends one audit record to the query log
func (ms *MemoryStore) AppendQuery(_ context.Context, q model.PriceQuery) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	ms.queries = append(ms.queries, q)
	return nil
}

// RecentQueries returns up to limit audit records, most recent first
func (ms *MemoryStore) RecentQueries(_ context.Context, limit int) ([]model.PriceQuery, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	if limit <= 0 || limit > len(ms.queries) {
		limit = len(ms.queries)
	}

	out := make([]model.PriceQuery, 0, limit)
	for i := len(ms.queries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, ms.queries[i])
	}
	return out, nil
}

// CreateJob persists a new job record
func (ms *MemoryStore) CreateJob(_ context.Context, job model.BulkFetchJob) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	j := job
	ms.jobs[job.ID] = &j
	ms.jobIDs = append(ms.jobIDs, job.ID)
	return nil
}

// GetJob returns a job by id
func (ms *MemoryStore) GetJob(_ context.Context, id string) (model.BulkFetchJob, bool, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	j, ok := ms.jobs[id]
	if !ok {
		return model.BulkFetchJob{}, false, nil
	}
	return *j, true, nil
}

// MarkJobProcessing transitions a pending job to processing
func (ms *MemoryStore) MarkJobProcessing(_ context.Context, id string) (bool, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	j, ok := ms.jobs[id]
	if !ok || j.Status != model.JobPending {
		return false, nil
	}
	j.Status = model.JobProcessing
	return true, nil
}

// SetJobTotalDays records the length of the job's timestamp sequence
func (ms *MemoryStore) SetJobTotalDays(_ context.Context, id string, totalDays int) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	j, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	j.TotalDays = &totalDays
	return nil
}

// UpdateJobProgress updates progress for a processing job, monotonically
func (ms *MemoryStore) UpdateJobProgress(_ context.Context, id string, progress int) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	j, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != model.JobProcessing {
		return nil
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

// CompleteJob transitions a processing job to completed
func (ms *MemoryStore) CompleteJob(_ context.Context, id string) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	j, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status.IsTerminal() {
		return nil
	}
	now := time.Now()
	j.Status = model.JobCompleted
	j.Progress = 100
	j.CompletedAt = &now
	return nil
}

// FailJob transitions a job to failed, leaving progress untouched
func (ms *MemoryStore) FailJob(_ context.Context, id string) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	j, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status.IsTerminal() {
		return nil
	}
	j.Status = model.JobFailed
	return nil
}

// ActiveJobs returns jobs whose status is pending or processing
func (ms *MemoryStore) ActiveJobs(_ context.Context) ([]model.BulkFetchJob, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	var out []model.BulkFetchJob
	for _, id := range ms.jobIDs {
		j := ms.jobs[id]
		if j.Status == model.JobPending || j.Status == model.JobProcessing {
			out = append(out, *j)
		}
	}
	return out, nil
}

// NextPendingJob returns the oldest pending job, if any
func (ms *MemoryStore) NextPendingJob(_ context.Context) (model.BulkFetchJob, bool, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	for _, id := range ms.jobIDs {
		if j := ms.jobs[id]; j.Status == model.JobPending {
			return *j, true, nil
		}
	}
	return model.BulkFetchJob{}, false, nil
}

// Ping always succeeds for the in-process backend
func (ms *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-process backend
func (ms *MemoryStore) Close() error {
	return nil
}
