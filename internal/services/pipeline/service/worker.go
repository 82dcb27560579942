package service

import (
	"context"
	"fmt"
	"os"
	"time"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"
	"codefrog/internal/services/pipeline/domain"
	projdom "codefrog/internal/services/projects/domain"

	"github.com/google/uuid"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultConcurrency  = 4
)

// WorkerConfig tunes the claim loop
type WorkerConfig struct {
	// Name identifies the worker in claimed_by, defaults to host/pid
	Name string
	// PollInterval is the idle sleep between claim attempts
	PollInterval time.Duration
	// Concurrency caps tasks executing at once
	Concurrency int
}

// Worker claims and executes pipeline tasks until its context ends
type Worker struct {
	svc      *Service
	handlers map[string]domain.Handler
	cfg      WorkerConfig
	log      logger.Logger
}

// NewWorker constructs a worker over the orchestrator's storage
func NewWorker(svc *Service, handlers map[string]domain.Handler, cfg WorkerConfig) *Worker {
	if cfg.Name == "" {
		host, _ := os.Hostname()
		cfg.Name = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Worker{
		svc:      svc,
		handlers: handlers,
		cfg:      cfg,
		log:      *logger.Named("pipeline-worker"),
	}
}

// Run drives the claim loop until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.log.Info().Str("worker", w.cfg.Name).Int("concurrency", w.cfg.Concurrency).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			// drain in-flight tasks
			for range cap(sem) {
				sem <- struct{}{}
			}
			w.log.Info().Str("worker", w.cfg.Name).Msg("worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		w.sweepExpired(ctx)

		// claim until the queue is empty or all slots are busy
	claim:
		for {
			select {
			case sem <- struct{}{}:
			default:
				break claim
			}

			task, err := w.svc.repo().ClaimNext(ctx, w.cfg.Name, w.svc.now())
			if err != nil {
				<-sem
				if !perr.IsCode(err, perr.ErrorCodeNotFound) {
					w.log.Error().Err(err).Msg("claim failed")
				}
				break claim
			}

			go func(task domain.Task) {
				defer func() { <-sem }()
				w.execute(ctx, task)
			}(task)
		}
	}
}

// sweepExpired abandons overdue tasks and cascades through their runs
func (w *Worker) sweepExpired(ctx context.Context) {
	runs, err := w.svc.repo().ExpireTasks(ctx, w.svc.now())
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	for _, runID := range runs {
		if err := w.cascade(ctx, runID); err != nil {
			w.log.Error().Err(err).Str("run_id", runID.String()).Msg("cascade failed")
			continue
		}
		if err := w.svc.finalize(ctx, runID); err != nil {
			w.log.Error().Err(err).Str("run_id", runID.String()).Msg("finalize failed")
		}
	}
}

// cascade fails dependents repeatedly until the failure has propagated
// through the whole DAG. One FailDependents pass only reaches direct
// dependents, since the UPDATE reads dependency statuses from its own
// statement snapshot.
func (w *Worker) cascade(ctx context.Context, runID uuid.UUID) error {
	for {
		n, err := w.svc.repo().FailDependents(ctx, runID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// execute runs one claimed task to completion and settles its run state
func (w *Worker) execute(ctx context.Context, task domain.Task) {
	ctx = logger.WithTask(ctx, task.ProjectID, task.RunID.String(), task.ID.String())
	log := logger.C(ctx).With().Str("kind", task.Kind).Logger()

	// first claim of a run moves the project into updating
	if err := w.svc.repo().StartRun(ctx, task.RunID, w.svc.now()); err != nil {
		log.Error().Err(err).Msg("start run failed")
	}
	if err := w.svc.Projects.SetStatus(ctx, task.ProjectID, projdom.StatusQueued, projdom.StatusUpdating); err != nil {
		// a sibling task already moved it
		if !perr.IsCode(err, perr.ErrorCodeConflict) {
			log.Error().Err(err).Msg("status transition failed")
		}
	}

	handler, ok := w.handlers[task.Kind]
	if !ok {
		w.settle(ctx, task, perr.Internalf("no handler for task kind %s", task.Kind))
		return
	}

	started := w.svc.now()
	err := handler(ctx, task)
	log.Info().
		Dur("took", w.svc.now().Sub(started)).
		Bool("ok", err == nil).
		Msg("task executed")

	w.settle(ctx, task, err)
}

// settle records the task outcome, cascades failures, and finalizes the
// run when it was the last pending task
func (w *Worker) settle(ctx context.Context, task domain.Task, execErr error) {
	log := logger.C(ctx)
	repo := w.svc.repo()

	if execErr != nil {
		if err := repo.FailTask(ctx, task.ID, execErr.Error()); err != nil {
			log.Error().Err(err).Msg("fail task failed")
			return
		}
		if err := w.cascade(ctx, task.RunID); err != nil {
			log.Error().Err(err).Msg("cascade failed")
		}
	} else if err := repo.CompleteTask(ctx, task.ID); err != nil {
		log.Error().Err(err).Msg("complete task failed")
		return
	}

	if err := w.svc.finalize(ctx, task.RunID); err != nil {
		log.Error().Err(err).Msg("finalize failed")
	}
}
