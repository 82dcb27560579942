package service

import (
	"sort"
	"time"

	"codefrog/internal/platform/timeutil"
	"codefrog/internal/services/metrics/domain"
)

// Freq is a resampling bucket width
type Freq string

// Resampling frequencies
const (
	FreqDaily     Freq = "D"
	FreqWeekly    Freq = "W"
	FreqMonthly   Freq = "M"
	FreqQuarterly Freq = "Q"
)

// Span thresholds in days for picking a frequency
const (
	spanDaily   = 90
	spanWeekly  = 365
	spanMonthly = 1095
)

// FreqForSpan picks the bucket width for a date span
func FreqForSpan(start, end time.Time) Freq {
	days := timeutil.SpanDays(start, end)
	switch {
	case days <= spanDaily:
		return FreqDaily
	case days <= spanWeekly:
		return FreqWeekly
	case days <= spanMonthly:
		return FreqMonthly
	default:
		return FreqQuarterly
	}
}

// summed fields aggregate by sum per bucket, everything else takes the last
// observation in the bucket
var summedFields = map[string]bool{
	domain.FieldIssuesClosed: true,
	domain.FieldPullsMerged:  true,
}

// bucketStart truncates a day to its bucket anchor
func bucketStart(day time.Time, freq Freq) time.Time {
	switch freq {
	case FreqWeekly:
		// ISO style Monday anchor
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case FreqMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case FreqQuarterly:
		q := (int(day.Month()) - 1) / 3
		return time.Date(day.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Resample folds a daily series into buckets of the given frequency.
// Gaps are forward-filled per field before aggregation and filled with 0
// before the first observation.
func Resample(points []domain.SeriesPoint, start, end time.Time, freq Freq) []domain.SeriesPoint {
	days := timeutil.Days(start, end)
	if len(days) == 0 {
		return nil
	}

	byDay := make(map[time.Time]map[string]float64, len(points))
	fields := map[string]bool{}
	for _, p := range points {
		byDay[timeutil.DayStart(p.Date)] = p.Values
		for f := range p.Values {
			fields[f] = true
		}
	}

	// dense daily grid with forward fill, 0 at the leading edge
	carried := map[string]float64{}
	dense := make([]domain.SeriesPoint, 0, len(days))
	for _, day := range days {
		vals := make(map[string]float64, len(fields))
		obs := byDay[day]
		for f := range fields {
			if obs != nil {
				if v, ok := obs[f]; ok {
					carried[f] = v
				}
			}
			if summedFields[f] && (obs == nil || !hasField(obs, f)) {
				// sums only count real observations
				vals[f] = 0
				continue
			}
			vals[f] = carried[f]
		}
		dense = append(dense, domain.SeriesPoint{Date: day, Values: vals})
	}

	if freq == FreqDaily {
		return dense
	}

	buckets := map[time.Time]map[string]float64{}
	var order []time.Time
	for _, p := range dense {
		b := bucketStart(p.Date, freq)
		agg, ok := buckets[b]
		if !ok {
			agg = map[string]float64{}
			buckets[b] = agg
			order = append(order, b)
		}
		for f, v := range p.Values {
			if summedFields[f] {
				agg[f] += v
			} else {
				agg[f] = v // last observation wins, dense is in date order
			}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]domain.SeriesPoint, 0, len(order))
	for _, b := range order {
		out = append(out, domain.SeriesPoint{Date: b, Values: buckets[b]})
	}
	return out
}

func hasField(m map[string]float64, f string) bool {
	_, ok := m[f]
	return ok
}
