// Package dates provides month-safe calendar arithmetic shared by the
// membership lifecycle services.
package dates

import "time"

// AddMonths adds n calendar months to t. If the day-of-month would overflow
// the target month (e.g. Jan 31 + 1 month), the result is clamped to the
// last valid day of that month instead of rolling into the following one.
// Pure and idempotent under identical inputs.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Normalize the target year/month without letting the day overflow.
	m := int(month) + n
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		y--
	}

	if last := daysInMonth(y, time.Month(m)); day > last {
		day = last
	}

	return time.Date(y, time.Month(m), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysUntil returns ceil((until - from) / 1 day). The result is negative
// once until lies in the past; callers must treat negative values as
// expired rather than clamping them.
func DaysUntil(from, until time.Time) int {
	diff := until.Sub(from)
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}
