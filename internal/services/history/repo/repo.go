// Package repo provides postgres access for history writes
package repo

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/services/history/domain"
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

// UpsertChange writes one commit/file row, replays are no-ops
func (r *queries) UpsertChange(ctx context.Context, ch domain.CodeChange) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO code_changes (
			project_id, commit_hash, committed_at, author_name, author_email,
			file_path, complexity_added, complexity_removed, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (project_id, commit_hash, file_path) DO NOTHING`,
		ch.ProjectID, ch.CommitHash, ch.Timestamp.UTC(), ch.AuthorName, ch.AuthorEmail,
		ch.FilePath, ch.ComplexityAdded, ch.ComplexityRemoved, ch.Description,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "history.UpsertChange")
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertGitTag writes one release row of kind git_tag
func (r *queries) UpsertGitTag(ctx context.Context, projectID int64, name string, ts time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO releases (project_id, name, kind, released_at)
		VALUES ($1, $2, 'git_tag', $3)
		ON CONFLICT (project_id, name, kind, released_at) DO NOTHING`,
		projectID, name, ts.UTC(),
	)
	if err != nil {
		return false, perr.FromPostgres(err, "history.UpsertGitTag")
	}
	return tag.RowsAffected() == 1, nil
}

// LastChangeTimestamp returns the newest committed_at for a project or nil
func (r *queries) LastChangeTimestamp(ctx context.Context, projectID int64) (*time.Time, error) {
	var ts *time.Time
	err := r.q.QueryRow(ctx, `
		SELECT max(committed_at) FROM code_changes WHERE project_id = $1`, projectID).Scan(&ts)
	if err != nil {
		return nil, perr.FromPostgres(err, "history.LastChangeTimestamp")
	}
	return ts, nil
}
