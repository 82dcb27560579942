package service

import (
	"testing"

	"codefrog/internal/services/metrics/domain"
)

func TestFreqForSpan(t *testing.T) {
	start := day(2020, 1, 1)
	cases := []struct {
		days int
		want Freq
	}{
		{30, FreqDaily},
		{90, FreqDaily},
		{91, FreqWeekly},
		{365, FreqWeekly},
		{366, FreqMonthly},
		{1095, FreqMonthly},
		{1096, FreqQuarterly},
	}
	for _, c := range cases {
		end := start.AddDate(0, 0, c.days-1)
		if got := FreqForSpan(start, end); got != c.want {
			t.Errorf("FreqForSpan(%d days) = %v, want %v", c.days, got, c.want)
		}
	}
}

func TestResampleDailyIsIdentityWithFill(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 1, 4)
	points := []domain.SeriesPoint{
		{Date: day(2024, 1, 2), Values: map[string]float64{domain.FieldComplexity: 10}},
		{Date: day(2024, 1, 4), Values: map[string]float64{domain.FieldComplexity: 12}},
	}

	out := Resample(points, start, end, FreqDaily)
	if len(out) != 4 {
		t.Fatalf("want 4 days, got %d", len(out))
	}
	if out[0].Values[domain.FieldComplexity] != 0 {
		t.Errorf("leading edge = %v, want 0", out[0].Values[domain.FieldComplexity])
	}
	if out[1].Values[domain.FieldComplexity] != 10 {
		t.Errorf("observed day = %v, want 10", out[1].Values[domain.FieldComplexity])
	}
	if out[2].Values[domain.FieldComplexity] != 10 {
		t.Errorf("gap day = %v, want forward-filled 10", out[2].Values[domain.FieldComplexity])
	}
	if out[3].Values[domain.FieldComplexity] != 12 {
		t.Errorf("last day = %v, want 12", out[3].Values[domain.FieldComplexity])
	}
}

func TestResampleWeeklyRules(t *testing.T) {
	// Monday 2024-01-01 through Sunday 2024-01-14, two full ISO weeks
	start, end := day(2024, 1, 1), day(2024, 1, 14)
	points := []domain.SeriesPoint{
		{Date: day(2024, 1, 1), Values: map[string]float64{
			domain.FieldComplexity:   5,
			domain.FieldIssuesClosed: 1,
		}},
		{Date: day(2024, 1, 3), Values: map[string]float64{
			domain.FieldComplexity:   8,
			domain.FieldIssuesClosed: 2,
		}},
		{Date: day(2024, 1, 10), Values: map[string]float64{
			domain.FieldComplexity:   6,
			domain.FieldIssuesClosed: 1,
		}},
	}

	out := Resample(points, start, end, FreqWeekly)
	if len(out) != 2 {
		t.Fatalf("want 2 weekly buckets, got %d", len(out))
	}
	w1, w2 := out[0], out[1]
	if !w1.Date.Equal(day(2024, 1, 1)) || !w2.Date.Equal(day(2024, 1, 8)) {
		t.Fatalf("bucket anchors = %v, %v", w1.Date, w2.Date)
	}
	// complexity takes the last observation in the bucket
	if w1.Values[domain.FieldComplexity] != 8 {
		t.Errorf("week1 complexity = %v, want last 8", w1.Values[domain.FieldComplexity])
	}
	if w2.Values[domain.FieldComplexity] != 6 {
		t.Errorf("week2 complexity = %v, want 6", w2.Values[domain.FieldComplexity])
	}
	// issues_closed sums within the bucket, gaps contribute 0
	if w1.Values[domain.FieldIssuesClosed] != 3 {
		t.Errorf("week1 issues_closed = %v, want 3", w1.Values[domain.FieldIssuesClosed])
	}
	if w2.Values[domain.FieldIssuesClosed] != 1 {
		t.Errorf("week2 issues_closed = %v, want 1", w2.Values[domain.FieldIssuesClosed])
	}
}

func TestResampleMonthlyAndQuarterlyAnchors(t *testing.T) {
	if got := bucketStart(day(2024, 2, 20), FreqMonthly); !got.Equal(day(2024, 2, 1)) {
		t.Errorf("monthly anchor = %v", got)
	}
	if got := bucketStart(day(2024, 5, 20), FreqQuarterly); !got.Equal(day(2024, 4, 1)) {
		t.Errorf("quarterly anchor = %v", got)
	}
	if got := bucketStart(day(2024, 12, 31), FreqQuarterly); !got.Equal(day(2024, 10, 1)) {
		t.Errorf("quarterly anchor = %v", got)
	}
	// weekly anchors on Monday
	if got := bucketStart(day(2024, 1, 7), FreqWeekly); !got.Equal(day(2024, 1, 1)) {
		t.Errorf("weekly anchor for Sunday = %v", got)
	}
}

func TestResampleEmptyRange(t *testing.T) {
	if out := Resample(nil, day(2024, 1, 2), day(2024, 1, 1), FreqDaily); out != nil {
		t.Errorf("reversed range should yield nil, got %v", out)
	}
}

func TestResampleSumFieldNotForwardFilled(t *testing.T) {
	start, end := day(2024, 1, 1), day(2024, 1, 3)
	points := []domain.SeriesPoint{
		{Date: day(2024, 1, 1), Values: map[string]float64{domain.FieldPullsMerged: 5}},
	}

	out := Resample(points, start, end, FreqDaily)
	if out[1].Values[domain.FieldPullsMerged] != 0 || out[2].Values[domain.FieldPullsMerged] != 0 {
		t.Error("summed fields must fill gaps with 0, not carry values")
	}
}
