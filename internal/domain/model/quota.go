package model

import "time"

// DailyQuota is one counter row per (user, calendar day). A fresh day gets a
// fresh zero row; counters are never decremented.
type DailyQuota struct {
	UserID           int64
	DayKey           string
	MatchActionsUsed int
	ConfessionsUsed  int
	UpdatedAt        time.Time
}
