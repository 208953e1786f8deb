package domain

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// Hours is a duration estimate expressed as whole hours.
type Hours int

// HoursFrom folds a weeks/days/hours input into whole hours, the unit all
// votes are recorded in.
func HoursFrom(weeks, days, hours int) Hours {
	return Hours(weeks*7*24 + days*24 + hours)
}

// Aggregator folds the recorded estimates of a closing question into its
// result. Implementations must be total over any non-empty input and
// independent of slice order; the session never calls one with an empty
// slice.
type Aggregator func(estimates []Hours) Hours

// Mean is the default policy: arithmetic mean rounded to the nearest hour.
func Mean(estimates []Hours) Hours {
	sum := lo.Sum(estimates)
	return Hours(math.Round(float64(sum) / float64(len(estimates))))
}

// Median is the alternative policy: middle value for an odd count, the two
// middle values averaged (rounded to the nearest hour) for an even count.
func Median(estimates []Hours) Hours {
	sorted := make([]Hours, len(estimates))
	copy(sorted, estimates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return Hours(math.Round(float64(sorted[n/2-1]+sorted[n/2]) / 2))
}
