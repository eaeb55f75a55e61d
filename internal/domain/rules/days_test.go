package rules

import (
	"testing"
	"time"
)

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 01:30 local on March 2nd is still March 1st in UTC.
	now := time.Date(2026, 3, 2, 1, 30, 0, 0, loc)

	if got := DayKey(now); got != "2026-03-01" {
		t.Fatalf("unexpected day key: %s", got)
	}
}

func TestNextResetAtIsUTCMidnight(t *testing.T) {
	now := time.Date(2026, 3, 1, 17, 45, 12, 0, time.UTC)

	got := NextResetAt(now)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected reset time: got %v want %v", got, want)
	}
}

func TestNextResetAtRollsOverMonthEnd(t *testing.T) {
	now := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	got := NextResetAt(now)
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected reset time: got %v want %v", got, want)
	}
}
