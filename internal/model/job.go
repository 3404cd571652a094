package model

import "time"

// JobStatus is the lifecycle state of a bulk fetch job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions may leave this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// BulkFetchJob tracks one asynchronous historical backfill.
// Lifecycle: pending -> processing -> completed | failed. Progress is
// monotonically non-decreasing while processing and always in [0,100].
type BulkFetchJob struct {
	ID           string     `json:"id"`
	TokenAddress string     `json:"tokenAddress"`
	Network      string     `json:"network"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	TotalDays    *int       `json:"totalDays,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}
