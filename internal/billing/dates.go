package billing

import "time"

// DayDifference returns the number of whole calendar days from b to a,
// positive when a is after b. Both timestamps are normalized to UTC
// midnight first, so time-of-day and zone offsets never produce a
// fractional day.
func DayDifference(a, b time.Time) int {
	am := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bm := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(am.Sub(bm).Hours() / 24)
}
