// Package service orchestrates the ingest and update pipelines
package service

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"
	"codefrog/internal/platform/timeutil"
	"codefrog/internal/services/pipeline/domain"
	projdom "codefrog/internal/services/projects/domain"

	"github.com/google/uuid"
)

// defaultTaskTTL bounds how long a queued task may wait before being abandoned
const defaultTaskTTL = 6 * time.Hour

// Config tunes the orchestrator
type Config struct {
	// TaskTTL is the expiration applied to every enqueued task
	TaskTTL time.Duration
}

// Service implements domain.OrchestratorPort
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.StorageRepo]
	Projects projdom.WriterPort
	Cfg      Config

	now   func() time.Time
	newID func() uuid.UUID
}

// New constructs the pipeline service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], projects projdom.WriterPort, cfg Config) *Service {
	if cfg.TaskTTL <= 0 {
		cfg.TaskTTL = defaultTaskTTL
	}
	return &Service{
		DB:       db,
		Binder:   binder,
		Projects: projects,
		Cfg:      cfg,
		now:      time.Now,
		newID:    uuid.New,
	}
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

// EnqueueIngest queues the full history pipeline
func (s *Service) EnqueueIngest(ctx context.Context, projectID int64) (uuid.UUID, error) {
	return s.enqueue(ctx, projectID, domain.RunIngest, nil)
}

// EnqueueUpdate queues the incremental pipeline starting at the beginning
// of the previous UTC day
func (s *Service) EnqueueUpdate(ctx context.Context, projectID int64) (uuid.UUID, error) {
	start := timeutil.DayStart(s.now().Add(-24 * time.Hour))
	return s.enqueue(ctx, projectID, domain.RunUpdate, &start)
}

func (s *Service) enqueue(ctx context.Context, projectID int64, kind string, start *time.Time) (uuid.UUID, error) {
	active, err := s.repo().HasActiveRun(ctx, projectID)
	if err != nil {
		return uuid.Nil, err
	}
	if active {
		return uuid.Nil, perr.Newf(perr.ErrorCodeConflict, "project %d already has an active pipeline", projectID)
	}

	if err := s.Projects.SetStatus(ctx, projectID, projdom.StatusReady, projdom.StatusQueued); err != nil {
		return uuid.Nil, err
	}

	run := domain.Run{
		ID:        s.newID(),
		ProjectID: projectID,
		Kind:      kind,
		Status:    domain.StatusQueued,
	}
	tasks := s.buildGraph(run, start)

	err = repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		if err := repo.InsertRun(ctx, run); err != nil {
			return err
		}
		for _, t := range tasks {
			if err := repo.InsertTask(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// leave the project usable, the run never materialized
		if stErr := s.Projects.SetStatus(ctx, projectID, projdom.StatusQueued, projdom.StatusReady); stErr != nil {
			logger.C(ctx).Error().Err(stErr).Int64("project_id", projectID).Msg("status rollback failed")
		}
		return uuid.Nil, err
	}

	logger.C(ctx).Info().
		Int64("project_id", projectID).
		Str("kind", kind).
		Str("run_id", run.ID.String()).
		Int("tasks", len(tasks)).
		Msg("pipeline enqueued")
	return run.ID, nil
}

// buildGraph lays out the pipeline DAG: a clone step, a fan-out of
// ingestion stages, a fan-in to metric aggregation, and a final source
// tree build once history and metrics are consistent.
func (s *Service) buildGraph(run domain.Run, start *time.Time) []domain.Task {
	now := s.now()
	payload := domain.Payload{ProjectID: run.ProjectID, Start: start}

	task := func(kind string, deps ...uuid.UUID) domain.Task {
		return domain.Task{
			ID:        s.newID(),
			RunID:     run.ID,
			ProjectID: run.ProjectID,
			Kind:      kind,
			Payload:   payload,
			Status:    domain.StatusQueued,
			DependsOn: deps,
			NotBefore: now,
			ExpiresAt: now.Add(s.Cfg.TaskTTL),
		}
	}

	clone := task(domain.TaskEnsureLocal)

	ingest := []domain.Task{
		task(domain.TaskCodeChanges, clone.ID),
		task(domain.TaskIssues, clone.ID),
		task(domain.TaskPulls, clone.ID),
		task(domain.TaskReleases, clone.ID),
		task(domain.TaskGitTags, clone.ID),
	}
	ingestIDs := ids(ingest)

	aggregate := []domain.Task{
		task(domain.TaskCodeMetrics, ingestIDs...),
		task(domain.TaskIssueMetrics, ingestIDs...),
		task(domain.TaskPullMetrics, ingestIDs...),
		task(domain.TaskFileComplexity, ingestIDs...),
	}

	tree := task(domain.TaskSourceTree, ids(aggregate)...)

	out := []domain.Task{clone}
	out = append(out, ingest...)
	out = append(out, aggregate...)
	out = append(out, tree)
	return out
}

func ids(tasks []domain.Task) []uuid.UUID {
	out := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

// Run implements domain.OrchestratorPort
func (s *Service) Run(ctx context.Context, runID uuid.UUID) (domain.Run, []domain.Task, error) {
	run, err := s.repo().RunByID(ctx, runID)
	if err != nil {
		return domain.Run{}, nil, err
	}
	tasks, err := s.repo().TasksByRun(ctx, runID)
	if err != nil {
		return domain.Run{}, nil, err
	}
	return run, tasks, nil
}

// finalize closes a run once no claimable work remains. A fully succeeded
// run stamps the project's last_update; any failure returns the project to
// ready with last_update untouched.
func (s *Service) finalize(ctx context.Context, runID uuid.UUID) error {
	repo := s.repo()

	pending, err := repo.PendingTasks(ctx, runID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	run, err := repo.RunByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != domain.StatusRunning && run.Status != domain.StatusQueued {
		return nil
	}

	tasks, err := repo.TasksByRun(ctx, runID)
	if err != nil {
		return err
	}
	failed := ""
	for _, t := range tasks {
		if t.Status == domain.StatusFailed || t.Status == domain.StatusExpired {
			failed = t.Kind + ": " + t.Error
			break
		}
	}

	now := s.now()
	status := domain.StatusSucceeded
	if failed != "" {
		status = domain.StatusFailed
	}
	if err := repo.FinishRun(ctx, runID, status, failed, now); err != nil {
		return err
	}

	if err := s.Projects.SetStatus(ctx, run.ProjectID, projdom.StatusUpdating, projdom.StatusReady); err != nil {
		// the run may fail before any task was claimed
		if err := s.Projects.SetStatus(ctx, run.ProjectID, projdom.StatusQueued, projdom.StatusReady); err != nil {
			return err
		}
	}
	if status == domain.StatusSucceeded {
		if err := s.Projects.MarkUpdated(ctx, run.ProjectID, now); err != nil {
			return err
		}
	}

	logger.C(ctx).Info().
		Str("run_id", runID.String()).
		Str("status", status).
		Int64("project_id", run.ProjectID).
		Msg("pipeline finished")
	return nil
}
