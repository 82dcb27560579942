// Package timeutil contains time related helpers
package timeutil

import "time"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// DayStart truncates t to midnight UTC
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayEnd returns the last instant of t's UTC day
func DayEnd(t time.Time) time.Time {
	return DayStart(t).Add(24*time.Hour - time.Nanosecond)
}

// Days returns every UTC midnight from start through end inclusive
// Returns nil when end is before start
func Days(start, end time.Time) []time.Time {
	s := DayStart(start)
	e := DayStart(end)
	if e.Before(s) {
		return nil
	}
	out := make([]time.Time, 0, int(e.Sub(s)/(24*time.Hour))+1)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// SpanDays counts whole UTC days between start and end inclusive
func SpanDays(start, end time.Time) int {
	s := DayStart(start)
	e := DayStart(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s)/(24*time.Hour)) + 1
}
