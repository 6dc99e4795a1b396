package timeseries

import (
	"sort"
	"time"

	"github.com/oplens/stockcast/internal/models"
)

// Normalize resamples raw grouped buckets onto a regular grid at the given
// interval. The span runs from the first observed bucket to the last,
// extended to the explicit date_start/date_end boundaries when the raw data
// does not reach them. Contributions landing in the same bucket are summed
// and every bucket without a contribution is filled with quantity 0.
//
// An empty input returns ErrNoData; a single raw bucket yields a valid
// series of length 1.
func Normalize(raw []models.RawBucket, interval models.Interval, dateStart, dateEnd *time.Time) (Series, error) {
	if len(raw) == 0 {
		return Series{}, ErrNoData
	}

	sums := make(map[time.Time]float64, len(raw))
	for _, b := range raw {
		sums[Truncate(b.BucketStart, interval)] += b.Quantity
	}

	starts := make([]time.Time, 0, len(sums))
	for start := range sums {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	gridStart := starts[0]
	gridEnd := starts[len(starts)-1]

	// Widen the grid to explicit boundaries. Boundaries inside the observed
	// span change nothing, and a boundary truncating onto an existing bucket
	// does not duplicate it.
	if dateStart != nil {
		if bound := Truncate(*dateStart, interval); bound.Before(gridStart) {
			gridStart = bound
		}
	}
	if dateEnd != nil {
		if bound := Truncate(*dateEnd, interval); bound.After(gridEnd) {
			gridEnd = bound
		}
	}

	var buckets []models.RawBucket
	for cur := gridStart; !cur.After(gridEnd); cur = Next(cur, interval) {
		buckets = append(buckets, models.RawBucket{
			BucketStart: cur,
			Quantity:    sums[cur],
		})
	}

	return Series{Interval: interval, Buckets: buckets}, nil
}
