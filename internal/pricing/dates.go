package pricing

import "time"

// Timing classification windows for requested service dates.
const (
	lastMinuteWindow = 48 * time.Hour
	advanceThreshold = 30 * 24 * time.Hour
)

// IsLastMinute reports whether the requested date falls between now and 48
// hours from now. Dates already in the past are not last-minute.
func IsLastMinute(requested, now time.Time) bool {
	until := requested.Sub(now)
	return until >= 0 && until <= lastMinuteWindow
}

// IsAdvanceBooking reports whether the requested date is more than 30 days
// from now.
func IsAdvanceBooking(requested, now time.Time) bool {
	return requested.Sub(now) > advanceThreshold
}

// IsPeakSeason reports whether the requested date falls in a peak calendar
// month: December, January, July, or August.
func IsPeakSeason(requested time.Time) bool {
	switch requested.Month() {
	case time.December, time.January, time.July, time.August:
		return true
	default:
		return false
	}
}

// ClassifyTiming derives the three context timing flags from a requested
// service date.
func ClassifyTiming(requested, now time.Time) (lastMinute, advanceBooking, peakSeason bool) {
	return IsLastMinute(requested, now), IsAdvanceBooking(requested, now), IsPeakSeason(requested)
}
