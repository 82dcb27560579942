// Package repo provides postgres access for tracker writes
package repo

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/services/tracker/domain"
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

// UpsertIssue writes or refreshes one issue row. Closed timestamps,
// labels, and the derived category change after first ingest, so
// conflicts update in place.
func (r *queries) UpsertIssue(ctx context.Context, is domain.Issue) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO issues (project_id, issue_refid, opened_at, closed_at, labels, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id, issue_refid) DO UPDATE
		SET closed_at = excluded.closed_at, labels = excluded.labels, category = excluded.category`,
		is.ProjectID, is.RefID, is.OpenedAt.UTC(), utc(is.ClosedAt), is.Labels, is.Category,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "tracker.UpsertIssue")
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertPull writes or refreshes one pull request row
func (r *queries) UpsertPull(ctx context.Context, pr domain.Pull) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO pull_requests (project_id, pr_refid, opened_at, merged_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, pr_refid) DO UPDATE
		SET merged_at = excluded.merged_at`,
		pr.ProjectID, pr.RefID, pr.OpenedAt.UTC(), utc(pr.MergedAt),
	)
	if err != nil {
		return false, perr.FromPostgres(err, "tracker.UpsertPull")
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertRelease writes one release row, replays are no-ops
func (r *queries) UpsertRelease(ctx context.Context, rel domain.Release) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO releases (project_id, name, kind, released_at, url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id, name, kind, released_at) DO NOTHING`,
		rel.ProjectID, rel.Name, rel.Kind, rel.ReleasedAt.UTC(), rel.URL,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "tracker.UpsertRelease")
	}
	return tag.RowsAffected() == 1, nil
}

// LastIssueOpenedAt returns the newest opened_at for a project or nil
func (r *queries) LastIssueOpenedAt(ctx context.Context, projectID int64) (*time.Time, error) {
	var ts *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT max(opened_at) FROM issues WHERE project_id = $1`, projectID).Scan(&ts)
	if err != nil {
		return nil, perr.FromPostgres(err, "tracker.LastIssueOpenedAt")
	}
	return ts, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
