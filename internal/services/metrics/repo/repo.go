// Package repo provides postgres access for metric aggregation
package repo

import (
	"context"
	"encoding/json"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/store"
	"codefrog/internal/services/metrics/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// LastComplexityBefore reads the complexity of the newest metric strictly
// before day, 0 when no prior metric carries one
func (r *queries) LastComplexityBefore(ctx context.Context, projectID int64, day time.Time) (float64, error) {
	var v float64
	err := r.q.QueryRow(ctx, `
		SELECT coalesce((
			SELECT (data->>'complexity')::float8
			FROM metrics
			WHERE project_id = $1 AND date < $2 AND data->>'complexity' IS NOT NULL
			ORDER BY date DESC
			LIMIT 1
		), 0)`, projectID, day.UTC()).Scan(&v)
	if err != nil {
		return 0, perr.FromPostgres(err, "metrics.LastComplexityBefore")
	}
	return v, nil
}

// ChangesBetween lists change deltas within [start, end] in timestamp order
func (r *queries) ChangesBetween(ctx context.Context, projectID int64, start, end time.Time) ([]domain.ChangeDelta, error) {
	return store.Many(ctx, r.q, scanDelta, `
		SELECT committed_at, commit_hash, file_path, complexity_added, complexity_removed
		FROM code_changes
		WHERE project_id = $1 AND committed_at >= $2 AND committed_at <= $3
		ORDER BY committed_at, id`,
		projectID, start.UTC(), end.UTC())
}

// ChangesByFile lists all change deltas ordered by file path then timestamp
func (r *queries) ChangesByFile(ctx context.Context, projectID int64) ([]domain.ChangeDelta, error) {
	return store.Many(ctx, r.q, scanDelta, `
		SELECT committed_at, commit_hash, file_path, complexity_added, complexity_removed
		FROM code_changes
		WHERE project_id = $1
		ORDER BY file_path, committed_at, id`,
		projectID)
}

func scanDelta(row repokit.Row) (domain.ChangeDelta, error) {
	var d domain.ChangeDelta
	err := row.Scan(&d.Timestamp, &d.CommitHash, &d.FilePath, &d.Added, &d.Removed)
	return d, err
}

// IssueSpans lists issue lifetimes ordered by opened_at
func (r *queries) IssueSpans(ctx context.Context, projectID int64) ([]domain.IssueSpan, error) {
	return store.Many(ctx, r.q, func(row repokit.Row) (domain.IssueSpan, error) {
		var s domain.IssueSpan
		err := row.Scan(&s.OpenedAt, &s.ClosedAt)
		return s, err
	}, `
		SELECT opened_at, closed_at
		FROM issues
		WHERE project_id = $1
		ORDER BY opened_at`, projectID)
}

// MergedPulls lists merged pull lifetimes ordered by merged_at
func (r *queries) MergedPulls(ctx context.Context, projectID int64) ([]domain.PullSpan, error) {
	return store.Many(ctx, r.q, func(row repokit.Row) (domain.PullSpan, error) {
		var s domain.PullSpan
		err := row.Scan(&s.OpenedAt, &s.MergedAt)
		return s, err
	}, `
		SELECT opened_at, merged_at
		FROM pull_requests
		WHERE project_id = $1 AND merged_at IS NOT NULL
		ORDER BY merged_at`, projectID)
}

// MergeMetricValues folds values into the day's metric document. The jsonb
// concatenation keeps fields written by other aggregation passes.
func (r *queries) MergeMetricValues(ctx context.Context, projectID int64, day time.Time, values map[string]float64) error {
	doc, err := json.Marshal(values)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode metric values")
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO metrics (project_id, date, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, date) DO UPDATE
		SET data = metrics.data || excluded.data`,
		projectID, day.UTC(), doc)
	if err != nil {
		return perr.FromPostgres(err, "metrics.MergeMetricValues")
	}
	return nil
}

// MetricsBetween lists daily metric rows within [start, end] in date order
func (r *queries) MetricsBetween(ctx context.Context, projectID int64, start, end time.Time) ([]domain.Metric, error) {
	return store.Many(ctx, r.q, func(row repokit.Row) (domain.Metric, error) {
		var (
			m   domain.Metric
			doc []byte
		)
		if err := row.Scan(&m.ProjectID, &m.Date, &doc); err != nil {
			return m, err
		}
		if err := json.Unmarshal(doc, &m.Values); err != nil {
			return m, perr.Wrap(err, perr.ErrorCodeJSON, "decode metric values")
		}
		return m, nil
	}, `
		SELECT project_id, date, data
		FROM metrics
		WHERE project_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`,
		projectID, start.UTC(), end.UTC())
}

// DeleteFileComplexities clears the per file trend before a rebuild
func (r *queries) DeleteFileComplexities(ctx context.Context, projectID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM file_complexities WHERE project_id = $1`, projectID); err != nil {
		return perr.FromPostgres(err, "metrics.DeleteFileComplexities")
	}
	return nil
}

// FileComplexityBefore reads the newest per file value strictly before day
func (r *queries) FileComplexityBefore(ctx context.Context, projectID int64, path string, day time.Time) (int64, error) {
	var v int64
	err := r.q.QueryRow(ctx, `
		SELECT coalesce((
			SELECT complexity
			FROM file_complexities
			WHERE project_id = $1 AND file_path = $2 AND date < $3
			ORDER BY date DESC
			LIMIT 1
		), 0)`, projectID, path, day.UTC()).Scan(&v)
	if err != nil {
		return 0, perr.FromPostgres(err, "metrics.FileComplexityBefore")
	}
	return v, nil
}

// FileComplexitiesBetween lists per file values within [start, end] by day
func (r *queries) FileComplexitiesBetween(ctx context.Context, projectID int64, path string, start, end time.Time) ([]domain.TrendPoint, error) {
	return store.Many(ctx, r.q, scanTrendPoint, `
		SELECT date, complexity
		FROM file_complexities
		WHERE project_id = $1 AND file_path = $2 AND date >= $3 AND date <= $4
		ORDER BY date`,
		projectID, path, start.UTC(), end.UTC())
}

// FileChangeCounts counts changes per day for the file within [start, end]
func (r *queries) FileChangeCounts(ctx context.Context, projectID int64, path string, start, end time.Time) ([]domain.TrendPoint, error) {
	return store.Many(ctx, r.q, scanTrendPoint, `
		SELECT date_trunc('day', committed_at) AS day, count(*)
		FROM code_changes
		WHERE project_id = $1 AND file_path = $2 AND committed_at >= $3 AND committed_at <= $4
		GROUP BY day
		ORDER BY day`,
		projectID, path, start.UTC(), end.UTC())
}

func scanTrendPoint(row repokit.Row) (domain.TrendPoint, error) {
	var p domain.TrendPoint
	if err := row.Scan(&p.Date, &p.Value); err != nil {
		return domain.TrendPoint{}, err
	}
	p.Date = p.Date.UTC()
	return p, nil
}

// UpsertFileComplexity writes one per file per day cumulative value
func (r *queries) UpsertFileComplexity(ctx context.Context, projectID int64, filePath string, day time.Time, complexity int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO file_complexities (project_id, file_path, date, complexity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, file_path, date) DO UPDATE
		SET complexity = excluded.complexity`,
		projectID, filePath, day.UTC(), complexity)
	if err != nil {
		return perr.FromPostgres(err, "metrics.UpsertFileComplexity")
	}
	return nil
}
