// Package repo provides postgres access for pipeline state
package repo

import (
	"context"
	"encoding/json"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/store"
	"codefrog/internal/services/pipeline/domain"

	"github.com/google/uuid"
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

// InsertRun writes one pipeline run
func (r *queries) InsertRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pipeline_runs (id, project_id, kind, status)
		VALUES ($1, $2, $3, $4)`,
		run.ID, run.ProjectID, run.Kind, run.Status)
	if err != nil {
		return perr.FromPostgres(err, "pipeline.InsertRun")
	}
	return nil
}

// InsertTask writes one pipeline task
func (r *queries) InsertTask(ctx context.Context, t domain.Task) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode task payload")
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO pipeline_tasks (id, run_id, project_id, kind, payload, status, depends_on, not_before, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.RunID, t.ProjectID, t.Kind, payload, t.Status, t.DependsOn, t.NotBefore.UTC(), t.ExpiresAt.UTC())
	if err != nil {
		return perr.FromPostgres(err, "pipeline.InsertTask")
	}
	return nil
}

const taskCols = `
	id, run_id, project_id, kind, payload, status, depends_on,
	attempts, not_before, expires_at, claimed_by, claimed_at, finished_at, error`

func scanTask(row repokit.Row) (domain.Task, error) {
	var (
		t       domain.Task
		payload []byte
	)
	err := row.Scan(&t.ID, &t.RunID, &t.ProjectID, &t.Kind, &payload, &t.Status, &t.DependsOn,
		&t.Attempts, &t.NotBefore, &t.ExpiresAt, &t.ClaimedBy, &t.ClaimedAt, &t.FinishedAt, &t.Error)
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(payload, &t.Payload); err != nil {
		return t, perr.Wrap(err, perr.ErrorCodeJSON, "decode task payload")
	}
	return t, nil
}

// ClaimNext claims the oldest runnable task. SKIP LOCKED keeps concurrent
// workers from blocking on each other, the dependency subquery keeps the
// DAG's happens-before edges.
func (r *queries) ClaimNext(ctx context.Context, worker string, now time.Time) (domain.Task, error) {
	return store.One(ctx, r.q, scanTask, `
		WITH next AS (
			SELECT t.id
			FROM pipeline_tasks t
			WHERE t.status = $2
			  AND t.not_before <= $3
			  AND t.expires_at > $3
			  AND NOT EXISTS (
				SELECT 1
				FROM unnest(t.depends_on) AS dep(id)
				JOIN pipeline_tasks d ON d.id = dep.id
				WHERE d.status <> $4
			  )
			ORDER BY t.created_at
			LIMIT 1
			FOR UPDATE OF t SKIP LOCKED
		)
		UPDATE pipeline_tasks t
		SET status = $5, claimed_by = $1, claimed_at = $3, attempts = attempts + 1, updated_at = now()
		FROM next
		WHERE t.id = next.id
		RETURNING `+taskCols,
		worker, domain.StatusQueued, now.UTC(), domain.StatusSucceeded, domain.StatusRunning)
}

// CompleteTask marks one task as succeeded
func (r *queries) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	return store.ExecOne(ctx, r.q, `
		UPDATE pipeline_tasks
		SET status = $2, finished_at = now(), updated_at = now()
		WHERE id = $1`, taskID, domain.StatusSucceeded)
}

// FailTask marks one task as failed with its error message
func (r *queries) FailTask(ctx context.Context, taskID uuid.UUID, msg string) error {
	return store.ExecOne(ctx, r.q, `
		UPDATE pipeline_tasks
		SET status = $2, error = $3, finished_at = now(), updated_at = now()
		WHERE id = $1`, taskID, domain.StatusFailed, msg)
}

// ExpireTasks abandons queued tasks past their TTL and returns the runs
// that lost tasks
func (r *queries) ExpireTasks(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := store.Many(ctx, r.q, func(row repokit.Row) (uuid.UUID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return id, err
	}, `
		UPDATE pipeline_tasks
		SET status = $1, error = 'expired', finished_at = now(), updated_at = now()
		WHERE status = $2 AND expires_at <= $3
		RETURNING run_id`,
		domain.StatusExpired, domain.StatusQueued, now.UTC())
	if err != nil {
		return nil, err
	}

	seen := map[uuid.UUID]struct{}{}
	var out []uuid.UUID
	for _, id := range rows {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// FailDependents fails queued tasks of a run that can no longer become
// claimable because a dependency failed or expired
func (r *queries) FailDependents(ctx context.Context, runID uuid.UUID) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE pipeline_tasks t
		SET status = $3, error = 'dependency failed', finished_at = now(), updated_at = now()
		WHERE t.run_id = $1
		  AND t.status = $2
		  AND EXISTS (
			SELECT 1
			FROM unnest(t.depends_on) AS dep(id)
			JOIN pipeline_tasks d ON d.id = dep.id
			WHERE d.status IN ($3, $4)
		  )`,
		runID, domain.StatusQueued, domain.StatusFailed, domain.StatusExpired)
	if err != nil {
		return 0, perr.FromPostgres(err, "pipeline.FailDependents")
	}
	return int(tag.RowsAffected()), nil
}

// RunByID reads one pipeline run
func (r *queries) RunByID(ctx context.Context, runID uuid.UUID) (domain.Run, error) {
	return store.One(ctx, r.q, func(row repokit.Row) (domain.Run, error) {
		var run domain.Run
		err := row.Scan(&run.ID, &run.ProjectID, &run.Kind, &run.Status, &run.Error,
			&run.CreatedAt, &run.StartedAt, &run.FinishedAt)
		return run, err
	}, `
		SELECT id, project_id, kind, status, error, created_at, started_at, finished_at
		FROM pipeline_runs
		WHERE id = $1`, runID)
}

// TasksByRun lists a run's tasks in creation order
func (r *queries) TasksByRun(ctx context.Context, runID uuid.UUID) ([]domain.Task, error) {
	return store.Many(ctx, r.q, scanTask, `
		SELECT `+taskCols+`
		FROM pipeline_tasks
		WHERE run_id = $1
		ORDER BY created_at`, runID)
}

// StartRun stamps the first task claim, later calls are no-ops
func (r *queries) StartRun(ctx context.Context, runID uuid.UUID, now time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE pipeline_runs
		SET status = $2, started_at = $3
		WHERE id = $1 AND started_at IS NULL`,
		runID, domain.StatusRunning, now.UTC())
	if err != nil {
		return perr.FromPostgres(err, "pipeline.StartRun")
	}
	return nil
}

// FinishRun records the run's terminal status
func (r *queries) FinishRun(ctx context.Context, runID uuid.UUID, status, msg string, now time.Time) error {
	return store.ExecOne(ctx, r.q, `
		UPDATE pipeline_runs
		SET status = $2, error = $3, finished_at = $4
		WHERE id = $1`, runID, status, msg, now.UTC())
}

// PendingTasks counts non-terminal tasks of a run
func (r *queries) PendingTasks(ctx context.Context, runID uuid.UUID) (int, error) {
	return store.Scalar[int](ctx, r.q, `
		SELECT count(*)::int
		FROM pipeline_tasks
		WHERE run_id = $1 AND status IN ($2, $3)`,
		runID, domain.StatusQueued, domain.StatusRunning)
}

// HasActiveRun reports whether the project has a live pipeline instance
func (r *queries) HasActiveRun(ctx context.Context, projectID int64) (bool, error) {
	return store.Scalar[bool](ctx, r.q, `
		SELECT EXISTS (
			SELECT 1 FROM pipeline_runs
			WHERE project_id = $1 AND status IN ($2, $3)
		)`, projectID, domain.StatusQueued, domain.StatusRunning)
}
