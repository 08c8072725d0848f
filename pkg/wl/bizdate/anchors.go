package bizdate

import "time"

// Horizon names a fixed look-back window.
type Horizon string

const (
	OneDay  Horizon = "1d"
	OneWeek Horizon = "1w"
	YTD     Horizon = "ytd"
)

// Horizons lists every horizon in display order.
var Horizons = []Horizon{OneDay, OneWeek, YTD}

// Anchors maps each horizon to the business day whose close is the base of
// that horizon's return.
type Anchors map[Horizon]time.Time

// AnchorsFor computes anchors relative to today: 1d is one business day
// back, 1w five business days back, ytd the last business day of the
// previous year.
func AnchorsFor(today time.Time) Anchors {
	today = Day(today)
	return Anchors{
		OneDay:  DaysAgo(today, 1),
		OneWeek: DaysAgo(today, 5),
		YTD:     OnOrBefore(time.Date(today.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)),
	}
}

// Key returns the anchor for h formatted with Layout, or "" if unset.
func (a Anchors) Key(h Horizon) string {
	t, ok := a[h]
	if !ok {
		return ""
	}
	return Format(t)
}
