package backfill

import (
	"context"
	"fmt"
	"time"

	"token-price-service/internal/logger"
	"token-price-service/internal/metrics"
	"token-price-service/internal/model"
	"token-price-service/pkg/utils"
)

// runJob executes one job end to end. The pending->processing claim is
// atomic in the store, so a job id delivered twice (queue plus poll) is
// processed exactly once. Any error after the claim marks the job failed;
// nothing escapes the worker boundary.
func (m *Manager) runJob(ctx context.Context, jobID string) {
	claimed, err := m.store.MarkJobProcessing(ctx, jobID)
	if err != nil {
		logger.LogJobEvent(jobID, "claim_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if !claimed {
		return // another worker owns it, or it is already terminal
	}
	metrics.RecordJobTransition(string(model.JobProcessing))

	defer func() {
		if r := recover(); r != nil {
			logger.LogJobEvent(jobID, "panic", map[string]interface{}{"panic": fmt.Sprint(r)})
			m.failJob(ctx, jobID)
		}
	}()

	job, found, err := m.store.GetJob(ctx, jobID)
	if err != nil || !found {
		logger.LogJobEvent(jobID, "load_failed", nil)
		m.failJob(ctx, jobID)
		return
	}

	if err := m.execute(ctx, job); err != nil {
		logger.LogJobEvent(jobID, "failed", map[string]interface{}{"error": err.Error()})
		m.failJob(ctx, jobID)
		return
	}

	if err := m.store.CompleteJob(ctx, jobID); err != nil {
		logger.LogJobEvent(jobID, "complete_write_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.RecordJobTransition(string(model.JobCompleted))
	logger.LogJobEvent(jobID, "completed", nil)
}

// execute fetches the token's full daily history in batches, persisting
// points and progress along the way.
func (m *Manager) execute(ctx context.Context, job model.BulkFetchJob) error {
	creation, err := m.provider.GetCreationTimestamp(ctx, job.TokenAddress, job.Network)
	if err != nil {
		return fmt.Errorf("failed to resolve creation timestamp: %w", err)
	}

	timestamps := utils.DailyTimestamps(creation, m.now().Unix())
	totalDays := len(timestamps)

	if err := m.store.SetJobTotalDays(ctx, job.ID, totalDays); err != nil {
		return fmt.Errorf("failed to record total days: %w", err)
	}

	logger.LogJobEvent(job.ID, "fetch_started", map[string]interface{}{
		"creation_ts": creation,
		"total_days":  totalDays,
	})

	processed := 0
	for i, batch := range utils.Batches(timestamps, m.cfg.BatchSize) {
		// Sequential batches with a fixed pause keep the provider happy;
		// its per-call retry already handles transient 429s.
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.BatchDelay):
			}
		}

		points, err := m.provider.GetPricesBatch(ctx, job.TokenAddress, job.Network, batch)
		if err != nil {
			return fmt.Errorf("batch fetch failed at offset %d: %w", processed, err)
		}

		persisted := 0
		for _, p := range points {
			if p == nil {
				continue // gap day, not an error
			}
			if err := m.store.InsertPricePoint(ctx, *p); err != nil {
				return fmt.Errorf("failed to persist price point: %w", err)
			}
			persisted++
		}
		metrics.RecordJobBatch(persisted)

		processed += len(batch)
		progress := 0
		if totalDays > 0 {
			progress = processed * 100 / totalDays
		}
		if err := m.store.UpdateJobProgress(ctx, job.ID, progress); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
	}

	return nil
}

func (m *Manager) failJob(ctx context.Context, jobID string) {
	if err := m.store.FailJob(ctx, jobID); err != nil {
		logger.LogJobEvent(jobID, "fail_write_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.RecordJobTransition(string(model.JobFailed))
}
