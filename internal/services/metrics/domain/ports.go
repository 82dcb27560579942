package domain

import (
	"context"
	"time"
)

// AggregatorPort is the public surface exposed by the metrics module
type AggregatorPort interface {
	// AggregateCode derives daily cumulative complexity and change frequency
	// from code changes at or after start (full history when nil), returns
	// days written
	AggregateCode(ctx context.Context, projectID int64, start *time.Time) (int, error)

	// AggregateIssues derives daily open count, closed count, and mean age
	// across the full issue history, returns days written
	AggregateIssues(ctx context.Context, projectID int64) (int, error)

	// AggregatePulls derives daily merged count and cumulative merge latency,
	// returns days written
	AggregatePulls(ctx context.Context, projectID int64) (int, error)

	// AggregateFileComplexity rebuilds the per file cumulative complexity
	// trend from scratch, returns rows written
	AggregateFileComplexity(ctx context.Context, projectID int64) (int, error)

	// Series returns the daily metrics between start and end resampled to a
	// frequency chosen by the span
	Series(ctx context.Context, projectID int64, start, end time.Time) ([]SeriesPoint, error)

	// FileComplexityTrend returns one complexity value per day for a single
	// file over the trailing window, forward-filled from the last value
	// before the window
	FileComplexityTrend(ctx context.Context, projectID int64, path string, days int) ([]TrendPoint, error)

	// FileChangesTrend returns one change count per day for a single file
	// over the trailing window, 0 on quiet days
	FileChangesTrend(ctx context.Context, projectID int64, path string, days int) ([]TrendPoint, error)
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	// LastComplexityBefore returns the complexity of the newest metric row
	// strictly before day, 0 when none exists
	LastComplexityBefore(ctx context.Context, projectID int64, day time.Time) (float64, error)

	// ChangesBetween lists code changes within [start, end] ordered by timestamp
	ChangesBetween(ctx context.Context, projectID int64, start, end time.Time) ([]ChangeDelta, error)

	// ChangesByFile lists all code changes ordered by file path then timestamp
	ChangesByFile(ctx context.Context, projectID int64) ([]ChangeDelta, error)

	// IssueSpans lists all issue lifetimes ordered by opened_at
	IssueSpans(ctx context.Context, projectID int64) ([]IssueSpan, error)

	// MergedPulls lists merged pull request lifetimes ordered by merged_at
	MergedPulls(ctx context.Context, projectID int64) ([]PullSpan, error)

	// MergeMetricValues folds values into the metric document for one day
	MergeMetricValues(ctx context.Context, projectID int64, day time.Time, values map[string]float64) error

	// MetricsBetween lists daily metric rows within [start, end] ordered by date
	MetricsBetween(ctx context.Context, projectID int64, start, end time.Time) ([]Metric, error)

	// Per file trend rows are rebuilt from scratch on each aggregation
	DeleteFileComplexities(ctx context.Context, projectID int64) error
	UpsertFileComplexity(ctx context.Context, projectID int64, filePath string, day time.Time, complexity int64) error

	// FileComplexityBefore returns the newest stored complexity for the file
	// strictly before day, 0 when none exists
	FileComplexityBefore(ctx context.Context, projectID int64, path string, day time.Time) (int64, error)

	// FileComplexitiesBetween lists stored per file values within [start, end]
	// ordered by day
	FileComplexitiesBetween(ctx context.Context, projectID int64, path string, start, end time.Time) ([]TrendPoint, error)

	// FileChangeCounts lists per day change counts for the file within
	// [start, end], days without changes are absent
	FileChangeCounts(ctx context.Context, projectID int64, path string, start, end time.Time) ([]TrendPoint, error)
}
