package model

// PriceResponse is the response body for a resolved price lookup.
type PriceResponse struct {
	TokenAddress string   `json:"tokenAddress"`
	Network      string   `json:"network"`
	Timestamp    int64    `json:"timestamp"`
	Price        float64  `json:"price"`
	Source       Source   `json:"source"`
	MarketCap    *float64 `json:"marketCap,omitempty"`
	Volume       *float64 `json:"volume,omitempty"`
}

// ScheduleResponse is returned when a backfill job has been scheduled.
type ScheduleResponse struct {
	JobID string `json:"jobId"`
}

// JobsResponse lists jobs that are still pending or processing.
type JobsResponse struct {
	Jobs []BulkFetchJob `json:"jobs"`
}

// QueriesResponse lists recent audit records, most recent first.
type QueriesResponse struct {
	Queries []PriceQuery `json:"queries"`
}

// StatsResponse reports service-level counters maintained by the resolver.
type StatsResponse struct {
	TotalQueries      int64   `json:"totalQueries"`
	InterpolatedCount int64   `json:"interpolatedCount"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
}

// ErrorResponse is the JSON error envelope used by all handlers.
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}
