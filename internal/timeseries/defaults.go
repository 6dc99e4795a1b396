package timeseries

import (
	"time"

	"github.com/oplens/stockcast/internal/models"
)

// PreviousPeriodEnd returns the last day of the period preceding the one
// containing today, for the given interval. Suggested as the default
// date_end so a series never includes the current, still-incomplete
// bucket.
func PreviousPeriodEnd(today time.Time, interval models.Interval) time.Time {
	today = Truncate(today, models.IntervalDay)
	switch interval {
	case models.IntervalDay:
		return today.AddDate(0, 0, -1)
	case models.IntervalWeek, models.IntervalMonth, models.IntervalQuarter, models.IntervalYear:
		return Truncate(today, interval).AddDate(0, 0, -1)
	}
	return today.AddDate(0, 0, -1)
}
