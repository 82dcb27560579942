// Package domain holds metric aggregation entities and ports
package domain

import "time"

// Metric payload field names
const (
	FieldComplexity      = "complexity"
	FieldChangeFrequency = "change_frequency"
	FieldIssuesOpen      = "issues_open"
	FieldIssuesClosed    = "issues_closed"
	FieldIssueAge        = "issue_age"
	FieldPullsMerged     = "pulls_merged"
	FieldPullsCumAge     = "pulls_cumulative_age"
)

// Metric is one per-day aggregate row. Values holds a subset of the
// payload fields, writers merge into the stored document.
type Metric struct {
	ProjectID int64
	Date      time.Time // UTC midnight
	Values    map[string]float64
}

// ChangeDelta is one code change reduced to its complexity contribution
type ChangeDelta struct {
	Timestamp  time.Time
	CommitHash string
	FilePath   string
	Added      int64
	Removed    int64
}

// IssueSpan is one issue reduced to its lifetime
type IssueSpan struct {
	OpenedAt time.Time
	ClosedAt *time.Time
}

// PullSpan is one merged pull request reduced to its lifetime
type PullSpan struct {
	OpenedAt time.Time
	MergedAt time.Time
}

// AgeSeconds is the merge latency of the pull request
func (p PullSpan) AgeSeconds() float64 {
	return p.MergedAt.Sub(p.OpenedAt).Seconds()
}

// TrendPoint is one day of a per file trend
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
}

// SeriesPoint is one resampled observation on the read path
type SeriesPoint struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}
