// Package repo provides postgres access for project rows
package repo

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/store"
	"codefrog/internal/services/projects/domain"
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

const projectCols = `
	id, name, slug, git_url, default_branch, provider, coalesce(external_id, 0),
	coalesce(installation_id, 0), private, active, status, bug_labels,
	last_update, created_at, updated_at`

func scanProject(r repokit.Row) (domain.Project, error) {
	var p domain.Project
	var status string
	err := r.Scan(
		&p.ID, &p.Name, &p.Slug, &p.GitURL, &p.DefaultBranch, &p.Provider, &p.ExternalID,
		&p.InstallationID, &p.Private, &p.Active, &status, &p.BugLabels,
		&p.LastUpdate, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = domain.Status(status)
	return p, err
}

func (r *queries) ByID(ctx context.Context, id int64) (domain.Project, error) {
	return store.One(ctx, r.q, scanProject,
		`SELECT `+projectCols+` FROM projects WHERE id = $1`, id)
}

func (r *queries) BySlug(ctx context.Context, slug string) (domain.Project, error) {
	return store.One(ctx, r.q, scanProject,
		`SELECT `+projectCols+` FROM projects WHERE slug = $1`, slug)
}

func (r *queries) ListActive(ctx context.Context) ([]domain.Project, error) {
	return store.Many(ctx, r.q, scanProject,
		`SELECT `+projectCols+` FROM projects WHERE active ORDER BY id`)
}

func (r *queries) Upsert(ctx context.Context, in domain.CreateInput) (domain.Project, error) {
	return store.One(ctx, r.q, scanProject, `
		INSERT INTO projects (name, slug, git_url, external_id, installation_id, private, bug_labels)
		VALUES ($1, $2, $3, NULLIF($4, 0), NULLIF($5, 0), $6, $7)
		ON CONFLICT (slug) DO UPDATE SET
			name            = excluded.name,
			git_url         = excluded.git_url,
			external_id     = excluded.external_id,
			installation_id = excluded.installation_id,
			private         = excluded.private,
			updated_at      = now()
		RETURNING `+projectCols,
		in.Name, in.Slug, in.GitURL, in.ExternalID, in.InstallationID, in.Private, in.BugLabels,
	)
}

// SetStatus moves the status only when the current value matches from
// Returns false when another pipeline instance holds the project
func (r *queries) SetStatus(ctx context.Context, id int64, from, to domain.Status) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE projects SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return false, perr.FromPostgres(err, "projects.SetStatus")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) SetBranch(ctx context.Context, id int64, branch string) error {
	return store.ExecOne(ctx, r.q, `
		UPDATE projects SET default_branch = $2, updated_at = now() WHERE id = $1`, id, branch)
}

func (r *queries) MarkUpdated(ctx context.Context, id int64, at time.Time) error {
	return store.ExecOne(ctx, r.q, `
		UPDATE projects SET last_update = $2, updated_at = now() WHERE id = $1`, id, at.UTC())
}

func (r *queries) SetActive(ctx context.Context, id int64, active bool) error {
	return store.ExecOne(ctx, r.q, `
		UPDATE projects SET active = $2, updated_at = now() WHERE id = $1`, id, active)
}

// PurgeDerived removes everything ingestion produced for a project
// The project row itself stays, reset to a clean slate
func (r *queries) PurgeDerived(ctx context.Context, id int64) error {
	stmts := []string{
		`DELETE FROM pipeline_tasks WHERE project_id = $1`,
		`DELETE FROM pipeline_runs WHERE project_id = $1`,
		`DELETE FROM source_nodes WHERE snapshot_id IN (SELECT id FROM source_tree_snapshots WHERE project_id = $1)`,
		`DELETE FROM source_tree_snapshots WHERE project_id = $1`,
		`DELETE FROM file_complexities WHERE project_id = $1`,
		`DELETE FROM metrics WHERE project_id = $1`,
		`DELETE FROM releases WHERE project_id = $1`,
		`DELETE FROM pull_requests WHERE project_id = $1`,
		`DELETE FROM issues WHERE project_id = $1`,
		`DELETE FROM code_changes WHERE project_id = $1`,
		`UPDATE projects SET status = 'ready', last_update = NULL, updated_at = now() WHERE id = $1`,
	}
	for _, s := range stmts {
		if _, err := r.q.Exec(ctx, s, id); err != nil {
			return perr.FromPostgres(err, "projects.PurgeDerived")
		}
	}
	return nil
}
