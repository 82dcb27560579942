package timeutil

import (
	"testing"
	"time"
)

func TestPtr(t *testing.T) {
	if Ptr(time.Time{}) != nil {
		t.Fatal("zero time must map to nil")
	}
	now := time.Now()
	if p := Ptr(now); p == nil || !p.Equal(now) {
		t.Fatal("non zero time must round trip")
	}
}

func TestDayStartEnd(t *testing.T) {
	in := time.Date(2020, 3, 15, 17, 42, 9, 123, time.FixedZone("x", 3600))
	s := DayStart(in)
	if s.Hour() != 0 || s.Location() != time.UTC {
		t.Fatalf("DayStart: %v", s)
	}
	e := DayEnd(in)
	if !e.After(s) || e.Day() != s.Day() {
		t.Fatalf("DayEnd: %v", e)
	}
}

func TestDays(t *testing.T) {
	start := time.Date(2020, 1, 30, 8, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 2, 23, 0, 0, 0, time.UTC)
	got := Days(start, end)
	if len(got) != 4 {
		t.Fatalf("want 4 days, got %d", len(got))
	}
	if got[0] != DayStart(start) || got[3] != DayStart(end) {
		t.Fatalf("bounds wrong: %v", got)
	}

	if Days(end, start) != nil {
		t.Fatal("reversed range must be nil")
	}
	if n := len(Days(start, start)); n != 1 {
		t.Fatalf("single day range: got %d", n)
	}
}

func TestSpanDays(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if n := SpanDays(start, start.AddDate(0, 0, 89)); n != 90 {
		t.Fatalf("got %d", n)
	}
	if n := SpanDays(start.AddDate(0, 0, 1), start); n != 0 {
		t.Fatalf("reversed: got %d", n)
	}
}
