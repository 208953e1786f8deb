package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoursFrom_FoldsWeeksDaysHours(t *testing.T) {
	// 1 day and 2 hours, the worked scenario: 1*24 + 2 = 26
	assert.Equal(t, Hours(26), HoursFrom(0, 1, 2))
	assert.Equal(t, Hours(168), HoursFrom(1, 0, 0))
	assert.Equal(t, Hours(0), HoursFrom(0, 0, 0))
	assert.Equal(t, Hours(193), HoursFrom(1, 1, 1))
}

func TestMean_RoundsToNearestHour(t *testing.T) {
	assert.Equal(t, Hours(26), Mean([]Hours{26}))
	assert.Equal(t, Hours(25), Mean([]Hours{20, 30}))
	// 10+11+11 = 32, /3 = 10.67 -> 11
	assert.Equal(t, Hours(11), Mean([]Hours{10, 11, 11}))
	// 10+10+11 = 31, /3 = 10.33 -> 10
	assert.Equal(t, Hours(10), Mean([]Hours{10, 10, 11}))
}

func TestMedian_OddAndEvenCounts(t *testing.T) {
	assert.Equal(t, Hours(10), Median([]Hours{40, 10, 5}))
	assert.Equal(t, Hours(15), Median([]Hours{10, 20}))
	// (10+11)/2 = 10.5 -> 11 (nearest hour)
	assert.Equal(t, Hours(11), Median([]Hours{11, 40, 2, 10}))
}

func TestAggregators_OrderIndependent(t *testing.T) {
	a := []Hours{8, 40, 16, 24}
	b := []Hours{24, 16, 40, 8}

	assert.Equal(t, Mean(a), Mean(b))
	assert.Equal(t, Median(a), Median(b))

	// Median must not mutate the caller's slice
	assert.Equal(t, []Hours{8, 40, 16, 24}, a)
}
