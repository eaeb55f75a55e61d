package rules

import "time"

// Daily quotas are keyed by UTC calendar date. A new date means a fresh
// counter row; nothing mutates the previous day's row.

func DayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

func NextResetAt(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day()+1, 0, 0, 0, 0, time.UTC)
}
