package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyTimestamps(t *testing.T) {
	tests := []struct {
		name  string
		start int64
		now   int64
		want  []int64
	}{
		{
			name:  "three full days",
			start: 0,
			now:   2 * DayStride,
			want:  []int64{0, DayStride, 2 * DayStride},
		},
		{
			name:  "now between strides excludes the next day",
			start: 0,
			now:   DayStride + 100,
			want:  []int64{0, DayStride},
		},
		{
			name:  "start equals now",
			start: 5000,
			now:   5000,
			want:  []int64{5000},
		},
		{
			name:  "start in the future",
			start: 1000,
			now:   999,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DailyTimestamps(tt.start, tt.now))
		})
	}
}

func TestBatches(t *testing.T) {
	ts := []int64{1, 2, 3, 4, 5, 6, 7}

	batches := Batches(ts, 3)
	assert.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}, {7}}, batches)

	assert.Nil(t, Batches(nil, 3))
	assert.Nil(t, Batches(ts, 0))
}
