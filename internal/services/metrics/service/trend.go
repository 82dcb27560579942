package service

import (
	"context"
	"time"

	"codefrog/internal/platform/timeutil"
	"codefrog/internal/services/metrics/domain"
)

const defaultTrendDays = 30

// FileComplexityTrend returns one value per day over the trailing window,
// seeded from the last stored value before the window and forward-filled
func (s *Service) FileComplexityTrend(ctx context.Context, projectID int64, path string, days int) ([]domain.TrendPoint, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	today := timeutil.DayStart(s.now())
	ref := today.AddDate(0, 0, -days)
	repo := s.repo()

	seed, err := repo.FileComplexityBefore(ctx, projectID, path, ref)
	if err != nil {
		return nil, err
	}
	observed, err := repo.FileComplexitiesBetween(ctx, projectID, path, ref, timeutil.DayEnd(today))
	if err != nil {
		return nil, err
	}
	return fillTrend(ref, today, seed, observed, true), nil
}

// FileChangesTrend returns one change count per day over the trailing window
func (s *Service) FileChangesTrend(ctx context.Context, projectID int64, path string, days int) ([]domain.TrendPoint, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	today := timeutil.DayStart(s.now())
	ref := today.AddDate(0, 0, -days)

	observed, err := s.repo().FileChangeCounts(ctx, projectID, path, ref, timeutil.DayEnd(today))
	if err != nil {
		return nil, err
	}
	return fillTrend(ref, today, 0, observed, false), nil
}

// fillTrend lays observations onto a dense daily grid. Carried trends
// forward-fill the last seen value, count trends reset to 0 each day.
func fillTrend(start, end time.Time, seed int64, observed []domain.TrendPoint, carry bool) []domain.TrendPoint {
	byDay := make(map[time.Time]int64, len(observed))
	for _, p := range observed {
		byDay[timeutil.DayStart(p.Date)] = p.Value
	}

	days := timeutil.Days(start, end)
	out := make([]domain.TrendPoint, 0, len(days))
	last := seed
	for _, day := range days {
		v, ok := byDay[day]
		switch {
		case ok:
			last = v
		case carry:
			v = last
		default:
			v = 0
		}
		out = append(out, domain.TrendPoint{Date: day, Value: v})
	}
	return out
}
