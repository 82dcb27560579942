package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrchestratorPort is the public surface exposed by the pipeline module
type OrchestratorPort interface {
	// EnqueueIngest queues the full history pipeline for a project,
	// transitioning it READY -> QUEUED
	EnqueueIngest(ctx context.Context, projectID int64) (uuid.UUID, error)

	// EnqueueUpdate queues the incremental pipeline with start = the
	// beginning of the previous UTC day
	EnqueueUpdate(ctx context.Context, projectID int64) (uuid.UUID, error)

	// Run returns a pipeline run with its tasks
	Run(ctx context.Context, runID uuid.UUID) (Run, []Task, error)
}

// Handler executes one task kind
type Handler func(ctx context.Context, task Task) error

// StorageRepo is the storage repository interface
type StorageRepo interface {
	InsertRun(ctx context.Context, run Run) error
	InsertTask(ctx context.Context, task Task) error

	// ClaimNext locks and claims the oldest queued task whose dependencies
	// all succeeded, whose not_before has passed, and which has not expired.
	// Returns ErrNotFound when nothing is claimable.
	ClaimNext(ctx context.Context, worker string, now time.Time) (Task, error)

	CompleteTask(ctx context.Context, taskID uuid.UUID) error
	FailTask(ctx context.Context, taskID uuid.UUID, msg string) error

	// ExpireTasks marks queued tasks past their TTL and returns the
	// distinct runs that lost tasks so the caller can cascade
	ExpireTasks(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// FailDependents marks queued tasks whose dependency failed, cascading
	// through the run. Returns the number of tasks failed.
	FailDependents(ctx context.Context, runID uuid.UUID) (int, error)

	RunByID(ctx context.Context, runID uuid.UUID) (Run, error)
	TasksByRun(ctx context.Context, runID uuid.UUID) ([]Task, error)

	// StartRun stamps started_at and moves the run to running, once
	StartRun(ctx context.Context, runID uuid.UUID, now time.Time) error

	// FinishRun records the terminal status of a run
	FinishRun(ctx context.Context, runID uuid.UUID, status, msg string, now time.Time) error

	// PendingTasks counts tasks of a run that are not yet terminal
	PendingTasks(ctx context.Context, runID uuid.UUID) (int, error)

	// HasActiveRun reports whether the project already has a queued or
	// running pipeline instance
	HasActiveRun(ctx context.Context, projectID int64) (bool, error)
}
