// Package service derives per day metrics from ingested rows
package service

import (
	"context"
	"sort"
	"time"

	"codefrog/internal/modkit/repokit"
	"codefrog/internal/platform/logger"
	"codefrog/internal/platform/timeutil"
	"codefrog/internal/services/metrics/domain"
)

// Service implements domain.AggregatorPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	now    func() time.Time
}

// New constructs the metrics service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo]) *Service {
	return &Service{DB: db, Binder: binder, now: time.Now}
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

// AggregateCode folds code changes at or after start into daily cumulative
// complexity and change frequency. The running total is seeded with the
// newest complexity strictly before the window so incremental runs continue
// the series instead of restarting it.
func (s *Service) AggregateCode(ctx context.Context, projectID int64, start *time.Time) (int, error) {
	repo := s.repo()

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if start != nil {
		from = timeutil.DayStart(*start)
	}
	end := timeutil.DayEnd(s.now())

	seed, err := repo.LastComplexityBefore(ctx, projectID, from)
	if err != nil {
		return 0, err
	}
	changes, err := repo.ChangesBetween(ctx, projectID, from, end)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		logger.C(ctx).Info().Int64("project_id", projectID).Msg("no code changes to aggregate")
		return 0, nil
	}

	// incremental runs fill the whole requested window, a full ingest
	// fills from the first observed change so the series does not
	// fabricate rows before the repository existed
	fillFrom := changes[0].Timestamp
	if start != nil {
		fillFrom = from
	}
	series := codeSeries(seed, changes, fillFrom, end)

	return s.writeSeries(ctx, projectID, series)
}

// AggregateIssues recomputes the issue metrics across the whole history
func (s *Service) AggregateIssues(ctx context.Context, projectID int64) (int, error) {
	issues, err := s.repo().IssueSpans(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if len(issues) == 0 {
		logger.C(ctx).Info().Int64("project_id", projectID).Msg("no issues to aggregate")
		return 0, nil
	}
	return s.writeSeries(ctx, projectID, issueSeries(issues, s.now()))
}

// AggregatePulls recomputes the pull request metrics across the whole history
func (s *Service) AggregatePulls(ctx context.Context, projectID int64) (int, error) {
	pulls, err := s.repo().MergedPulls(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if len(pulls) == 0 {
		logger.C(ctx).Info().Int64("project_id", projectID).Msg("no merged pulls to aggregate")
		return 0, nil
	}
	return s.writeSeries(ctx, projectID, pullSeries(pulls, s.now()))
}

// AggregateFileComplexity rebuilds the per file cumulative complexity trend
// inside one transaction
func (s *Service) AggregateFileComplexity(ctx context.Context, projectID int64) (int, error) {
	changes, err := s.repo().ChangesByFile(ctx, projectID)
	if err != nil {
		return 0, err
	}

	series := fileComplexitySeries(changes)
	written := 0
	err = repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		if err := repo.DeleteFileComplexities(ctx, projectID); err != nil {
			return err
		}
		for path, days := range series {
			for day, complexity := range days {
				if err := repo.UpsertFileComplexity(ctx, projectID, path, day, complexity); err != nil {
					return err
				}
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.C(ctx).Info().Int64("project_id", projectID).Int("rows", written).Msg("rebuilt file complexity trend")
	return written, nil
}

// Series reads daily metrics and resamples them by the span of the request
func (s *Service) Series(ctx context.Context, projectID int64, start, end time.Time) ([]domain.SeriesPoint, error) {
	rows, err := s.repo().MetricsBetween(ctx, projectID, timeutil.DayStart(start), timeutil.DayEnd(end))
	if err != nil {
		return nil, err
	}
	points := make([]domain.SeriesPoint, 0, len(rows))
	for _, m := range rows {
		points = append(points, domain.SeriesPoint{Date: m.Date, Values: m.Values})
	}
	return Resample(points, start, end, FreqForSpan(start, end)), nil
}

// writeSeries merges per day values into the metric rows in date order
func (s *Service) writeSeries(ctx context.Context, projectID int64, series dayValues) (int, error) {
	days := make([]time.Time, 0, len(series))
	for day := range series {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	repo := s.repo()
	for _, day := range days {
		if err := repo.MergeMetricValues(ctx, projectID, day, series[day]); err != nil {
			return 0, err
		}
	}
	return len(days), nil
}
