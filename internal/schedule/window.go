// Package schedule produces the rolling date window a crawl sweeps over.
package schedule

import "time"

// DateFormat is the wire format reservation sites and the store key use.
const DateFormat = "2006-01-02"

// Window returns count consecutive calendar dates starting at start.
// Dates advance with calendar-day arithmetic, not 24h durations, so the
// sequence stays correct across daylight-saving transitions.
func Window(start time.Time, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, day.AddDate(0, 0, i))
	}
	return dates
}

// Format renders a window date in the site/store wire format.
func Format(d time.Time) string {
	return d.Format(DateFormat)
}
