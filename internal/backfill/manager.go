package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"token-price-service/internal/logger"
	"token-price-service/internal/model"
	"token-price-service/internal/provider"
	"token-price-service/internal/store"
)

const (
	// DefaultWorkers is the number of concurrent job executors.
	DefaultWorkers = 3
	// DefaultBatchSize is the number of timestamps per provider batch call.
	DefaultBatchSize = 10
	// DefaultBatchDelay is the pause between sequential provider batch calls
	// within one job, to stay under provider rate limits.
	DefaultBatchDelay = time.Second
	// DefaultPollInterval is how often idle workers look for pending jobs the
	// queue never delivered.
	DefaultPollInterval = 5 * time.Second

	queueSize = 64
)

// Config tunes the manager; zero values fall back to the defaults above.
type Config struct {
	Workers      int
	BatchSize    int
	BatchDelay   time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = DefaultBatchDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Manager creates and tracks bulk fetch jobs and runs the worker pool that
// executes them. The persisted job row is the source of truth; the in-process
// queue is only a wake-up signal, so workers also poll for pending rows and a
// lost enqueue never strands a job.
type Manager struct {
	store    store.Store
	provider provider.Provider
	cfg      Config
	queue    chan string
	now      func() time.Time
}

// NewManager creates a backfill manager over the given collaborators
func NewManager(s store.Store, p provider.Provider, cfg Config) *Manager {
	return &Manager{
		store:    s,
		provider: p,
		cfg:      cfg.withDefaults(),
		queue:    make(chan string, queueSize),
		now:      time.Now,
	}
}

// Schedule creates a pending job and wakes a worker. The job id is returned
// as soon as the record is durable; a full or unavailable queue is not an
// error because the poll loop will find the row.
func (m *Manager) Schedule(ctx context.Context, tokenAddress, network string) (string, error) {
	job := model.BulkFetchJob{
		ID:           uuid.New().String(),
		TokenAddress: tokenAddress,
		Network:      network,
		Status:       model.JobPending,
		CreatedAt:    time.Now(),
	}

	if err := m.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job record: %w", err)
	}

	select {
	case m.queue <- job.ID:
	default:
		logger.LogJobEvent(job.ID, "enqueue_skipped", map[string]interface{}{
			"reason": "queue full, job remains pending for the poll loop",
		})
	}

	logger.LogJobEvent(job.ID, "scheduled", map[string]interface{}{
		"token":   tokenAddress,
		"network": network,
	})
	return job.ID, nil
}

// ActiveJobs returns jobs whose status is pending or processing
func (m *Manager) ActiveJobs(ctx context.Context) ([]model.BulkFetchJob, error) {
	return m.store.ActiveJobs(ctx)
}

// GetJob returns a job by id
func (m *Manager) GetJob(ctx context.Context, id string) (model.BulkFetchJob, bool, error) {
	return m.store.GetJob(ctx, id)
}

// Start launches the worker pool. Workers run until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < m.cfg.Workers; i++ {
		go m.workerLoop(ctx, i)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"workers":    m.cfg.Workers,
		"batch_size": m.cfg.BatchSize,
	}).Info("Backfill worker pool started")
}

func (m *Manager) workerLoop(ctx context.Context, id int) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-m.queue:
			m.runJob(ctx, jobID)
		case <-ticker.C:
			job, found, err := m.store.NextPendingJob(ctx)
			if err != nil {
				logger.GetLogger().WithFields(map[string]interface{}{
					"worker": id,
					"error":  err.Error(),
				}).Warn("Pending job poll failed")
				continue
			}
			if found {
				m.runJob(ctx, job.ID)
			}
		}
	}
}
