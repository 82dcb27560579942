package service

import (
	"time"

	"codefrog/internal/platform/timeutil"
	"codefrog/internal/services/metrics/domain"
)

// dayValues maps UTC midnights to partial metric payloads
type dayValues map[time.Time]map[string]float64

// codeSeries folds ordered change deltas into per day cumulative complexity
// and change frequency. seed is the running total before the first day.
// Days without changes between start and end are forward-filled with the
// carried total and a change frequency of 0.
func codeSeries(seed float64, changes []domain.ChangeDelta, start, end time.Time) dayValues {
	out := dayValues{}

	total := seed
	freq := map[time.Time]float64{}
	seenHash := map[time.Time]map[string]struct{}{}
	for _, ch := range changes {
		day := timeutil.DayStart(ch.Timestamp)
		total += float64(ch.Added)
		total -= float64(ch.Removed)
		if out[day] == nil {
			out[day] = map[string]float64{}
		}
		out[day][domain.FieldComplexity] = total

		// one commit may touch many files, frequency counts commits
		if seenHash[day] == nil {
			seenHash[day] = map[string]struct{}{}
		}
		if _, dup := seenHash[day][ch.CommitHash]; !dup {
			seenHash[day][ch.CommitHash] = struct{}{}
			freq[day]++
		}
		out[day][domain.FieldChangeFrequency] = freq[day]
	}

	carried := seed
	for _, day := range timeutil.Days(start, end) {
		if v, ok := out[day]; ok {
			carried = v[domain.FieldComplexity]
			continue
		}
		out[day] = map[string]float64{
			domain.FieldComplexity:      carried,
			domain.FieldChangeFrequency: 0,
		}
	}
	return out
}

// issueSeries computes per day open count, closed-today count, and mean age
// across the whole issue history, from the first opened_at through end
func issueSeries(issues []domain.IssueSpan, end time.Time) dayValues {
	out := dayValues{}
	if len(issues) == 0 {
		return out
	}

	for _, day := range timeutil.Days(issues[0].OpenedAt, end) {
		dayEnd := timeutil.DayEnd(day)

		var openCount, openAge, closedCount, closedAge, closedToday float64
		for _, is := range issues {
			if is.OpenedAt.After(dayEnd) {
				continue
			}
			switch {
			case is.ClosedAt == nil || is.ClosedAt.After(dayEnd):
				openCount++
				openAge += ageDays(is.OpenedAt, day)
			default:
				closedCount++
				closedAge += ageDays(is.OpenedAt, *is.ClosedAt)
				if timeutil.DayStart(*is.ClosedAt).Equal(day) {
					closedToday++
				}
			}
		}

		age := 0.0
		if openCount+closedCount > 0 {
			age = (openAge + closedAge) / (openCount + closedCount)
		}
		out[day] = map[string]float64{
			domain.FieldIssuesOpen:   openCount,
			domain.FieldIssuesClosed: closedToday,
			domain.FieldIssueAge:     age,
		}
	}
	return out
}

// pullSeries computes per day merged count and cumulative merge latency in
// seconds, from the first opened_at through end. The mean latency is derived
// on the read path as cumulative_age / merged.
func pullSeries(pulls []domain.PullSpan, end time.Time) dayValues {
	out := dayValues{}
	if len(pulls) == 0 {
		return out
	}

	start := pulls[0].OpenedAt
	for _, p := range pulls {
		if p.OpenedAt.Before(start) {
			start = p.OpenedAt
		}
	}

	merged := map[time.Time]float64{}
	cumAge := map[time.Time]float64{}
	for _, p := range pulls {
		day := timeutil.DayStart(p.MergedAt)
		merged[day]++
		cumAge[day] += p.AgeSeconds()
	}

	for _, day := range timeutil.Days(start, end) {
		out[day] = map[string]float64{
			domain.FieldPullsMerged: merged[day],
			domain.FieldPullsCumAge: cumAge[day],
		}
	}
	return out
}

// fileComplexitySeries folds changes ordered by file then timestamp into the
// last cumulative complexity per (file, day)
func fileComplexitySeries(changes []domain.ChangeDelta) map[string]map[time.Time]int64 {
	out := map[string]map[time.Time]int64{}
	running := map[string]int64{}
	for _, ch := range changes {
		running[ch.FilePath] += ch.Added - ch.Removed
		if out[ch.FilePath] == nil {
			out[ch.FilePath] = map[time.Time]int64{}
		}
		out[ch.FilePath][timeutil.DayStart(ch.Timestamp)] = running[ch.FilePath]
	}
	return out
}

// ageDays measures whole calendar days between two instants, never negative
func ageDays(from, to time.Time) float64 {
	d := timeutil.DayStart(to).Sub(timeutil.DayStart(from)).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}
