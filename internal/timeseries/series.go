// Package timeseries turns irregular grouped movement totals into the
// regular bucket grid the forecast engine consumes.
package timeseries

import (
	"errors"
	"time"

	"github.com/oplens/stockcast/internal/models"
)

// ErrNoData signals that no raw buckets exist at all for the requested
// scope and period. Distinct from a zero-filled series: the pipeline must
// abort and surface a not-enough-data condition instead of forecasting.
var ErrNoData = errors.New("no historical data for the requested scope and period")

// Series is a normalized demand series: strictly ascending, contiguous,
// one bucket per interval unit, no gaps.
type Series struct {
	Interval models.Interval
	Buckets  []models.RawBucket
}

// Values returns the quantities as a plain float slice for model fitting.
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Buckets))
	for i, b := range s.Buckets {
		values[i] = b.Quantity
	}
	return values
}

// Len returns the number of buckets.
func (s Series) Len() int {
	return len(s.Buckets)
}

// End returns the start of the last bucket. Only valid on non-empty series.
func (s Series) End() time.Time {
	return s.Buckets[len(s.Buckets)-1].BucketStart
}

// Truncate maps a timestamp to the start of its containing bucket, in UTC.
// Weeks start on Monday and quarters on Jan/Apr/Jul/Oct 1st, matching
// postgres DATE_TRUNC so the grid lines up with the extractor's grouping.
func Truncate(t time.Time, interval models.Interval) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch interval {
	case models.IntervalDay:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case models.IntervalWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case models.IntervalMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case models.IntervalQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	case models.IntervalYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Next returns the start of the bucket following t.
func Next(t time.Time, interval models.Interval) time.Time {
	switch interval {
	case models.IntervalDay:
		return t.AddDate(0, 0, 1)
	case models.IntervalWeek:
		return t.AddDate(0, 0, 7)
	case models.IntervalMonth:
		return t.AddDate(0, 1, 0)
	case models.IntervalQuarter:
		return t.AddDate(0, 3, 0)
	case models.IntervalYear:
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 0, 1)
}
