// Package repo provides postgres access for snapshot trees
package repo

import (
	"context"
	"encoding/json"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/store"
	"codefrog/internal/services/sourcetree/domain"
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

// CreateSnapshot inserts a new inactive snapshot and returns its id
func (r *queries) CreateSnapshot(ctx context.Context, projectID int64) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO source_tree_snapshots (project_id, active)
		VALUES ($1, FALSE)
		RETURNING id`, projectID).Scan(&id)
	if err != nil {
		return 0, perr.FromPostgres(err, "sourcetree.CreateSnapshot")
	}
	return id, nil
}

// InsertNode writes one node and returns its id, parents must exist first
func (r *queries) InsertNode(ctx context.Context, n domain.Node) (int64, error) {
	ownership := []byte("[]")
	if len(n.Ownership) > 0 {
		var err error
		if ownership, err = json.Marshal(n.Ownership); err != nil {
			return 0, perr.Wrap(err, perr.ErrorCodeJSON, "encode ownership")
		}
	}

	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO source_nodes (
			snapshot_id, parent_id, name, path, kind,
			complexity, change_count, ownership, repo_link, lft, rgt
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		n.SnapshotID, n.ParentID, n.Name, n.Path, n.Kind,
		n.Complexity, n.ChangeCount, ownership, n.RepoLink, n.Lft, n.Rgt,
	).Scan(&id)
	if err != nil {
		return 0, perr.FromPostgres(err, "sourcetree.InsertNode")
	}
	return id, nil
}

// ActivateSnapshot deactivates the previous active snapshot and activates
// the new one. The partial unique index on (project_id) WHERE active keeps
// racing writers from ending up with two active snapshots.
func (r *queries) ActivateSnapshot(ctx context.Context, projectID, snapshotID int64) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE source_tree_snapshots SET active = FALSE
		WHERE project_id = $1 AND active`, projectID); err != nil {
		return perr.FromPostgres(err, "sourcetree.ActivateSnapshot deactivate")
	}
	return store.ExecOne(ctx, r.q, `
		UPDATE source_tree_snapshots SET active = TRUE
		WHERE id = $1 AND project_id = $2`, snapshotID, projectID)
}

// ChangeCounts returns per file change counts at or after since
func (r *queries) ChangeCounts(ctx context.Context, projectID int64, since time.Time) (map[string]int64, error) {
	type row struct {
		path  string
		count int64
	}
	rows, err := store.Many(ctx, r.q, func(r repokit.Row) (row, error) {
		var out row
		err := r.Scan(&out.path, &out.count)
		return out, err
	}, `
		SELECT file_path, count(*)
		FROM code_changes
		WHERE project_id = $1 AND committed_at >= $2
		GROUP BY file_path`,
		projectID, since.UTC())
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.path] = r.count
	}
	return out, nil
}

// ActiveNodes lists the active snapshot's nodes in lft order
func (r *queries) ActiveNodes(ctx context.Context, projectID int64) ([]domain.Node, error) {
	return store.Many(ctx, r.q, scanNode, `
		SELECT n.id, n.snapshot_id, n.parent_id, n.name, n.path, n.kind,
		       n.complexity, n.change_count, n.ownership, n.repo_link, n.lft, n.rgt
		FROM source_nodes n
		JOIN source_tree_snapshots s ON s.id = n.snapshot_id
		WHERE s.project_id = $1 AND s.active
		ORDER BY n.lft`, projectID)
}

func scanNode(row repokit.Row) (domain.Node, error) {
	var (
		n         domain.Node
		ownership []byte
	)
	err := row.Scan(&n.ID, &n.SnapshotID, &n.ParentID, &n.Name, &n.Path, &n.Kind,
		&n.Complexity, &n.ChangeCount, &ownership, &n.RepoLink, &n.Lft, &n.Rgt)
	if err != nil {
		return n, err
	}
	if err := json.Unmarshal(ownership, &n.Ownership); err != nil {
		return n, perr.Wrap(err, perr.ErrorCodeJSON, "decode ownership")
	}
	return n, nil
}
