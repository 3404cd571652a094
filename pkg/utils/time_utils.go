package utils

import (
	"time"
)

// DayStride is the fixed spacing of a backfill timestamp sequence.
const DayStride = int64(24 * 60 * 60)

// DailyTimestamps returns the ordered sequence of daily unix timestamps from
// start (inclusive) up to but not exceeding now. An empty sequence means
// start lies in the future.
func DailyTimestamps(start, now int64) []int64 {
	if start > now {
		return nil
	}

	out := make([]int64, 0, (now-start)/DayStride+1)
	for ts := start; ts <= now; ts += DayStride {
		out = append(out, ts)
	}
	return out
}

// Batches splits a timestamp sequence into consecutive chunks of size. The
// final chunk may be shorter.
func Batches(timestamps []int64, size int) [][]int64 {
	if size <= 0 || len(timestamps) == 0 {
		return nil
	}

	out := make([][]int64, 0, (len(timestamps)+size-1)/size)
	for start := 0; start < len(timestamps); start += size {
		end := start + size
		if end > len(timestamps) {
			end = len(timestamps)
		}
		out = append(out, timestamps[start:end])
	}
	return out
}

// TruncateToDay truncates a time to midnight UTC
func TruncateToDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
