// Package service implements project lifecycle workflows
package service

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"
	"codefrog/internal/services/projects/domain"

	"github.com/go-playground/validator/v10"
)

// Service implements the projects ports on top of the storage repo
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.StorageRepo]
	validate *validator.Validate
}

// New constructs the projects service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo]) *Service {
	return &Service{
		DB:       db,
		Binder:   binder,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

// ByID implements domain.ReaderPort
func (s *Service) ByID(ctx context.Context, id int64) (domain.Project, error) {
	return s.repo().ByID(ctx, id)
}

// BySlug implements domain.ReaderPort
func (s *Service) BySlug(ctx context.Context, slug string) (domain.Project, error) {
	return s.repo().BySlug(ctx, slug)
}

// ListActive implements domain.ReaderPort
func (s *Service) ListActive(ctx context.Context) ([]domain.Project, error) {
	return s.repo().ListActive(ctx)
}

// Create validates and upserts a project registration
func (s *Service) Create(ctx context.Context, in domain.CreateInput) (domain.Project, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Project{}, perr.Wrap(err, perr.ErrorCodeValidation, "invalid project input")
	}
	p, err := s.repo().Upsert(ctx, in)
	if err != nil {
		return domain.Project{}, err
	}
	logger.C(ctx).Info().Int64("project_id", p.ID).Str("slug", p.Slug).Msg("project registered")
	return p, nil
}

// SetStatus performs a guarded status transition
func (s *Service) SetStatus(ctx context.Context, id int64, from, to domain.Status) error {
	if !from.CanTransition(to) {
		return perr.Internalf("illegal project status transition %s -> %s", from, to)
	}
	ok, err := s.repo().SetStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return perr.Newf(perr.ErrorCodeConflict, "project %d not in status %s", id, from)
	}
	return nil
}

// SetBranch records the HEAD branch observed by the repo manager
func (s *Service) SetBranch(ctx context.Context, id int64, branch string) error {
	return s.repo().SetBranch(ctx, id, branch)
}

// MarkUpdated stamps a successful pipeline completion
func (s *Service) MarkUpdated(ctx context.Context, id int64, at time.Time) error {
	return s.repo().MarkUpdated(ctx, id, at)
}

// Deactivate takes a project out of rotation, keeping ingested data
// Used when the provider answers permanently (404, revoked token)
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	logger.C(ctx).Warn().Int64("project_id", id).Msg("deactivating project")
	return s.repo().SetActive(ctx, id, false)
}

// Purge drops all derived rows for a project inside one transaction
func (s *Service) Purge(ctx context.Context, id int64) error {
	return repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).PurgeDerived(ctx, id)
	})
}
