// Package service ingests provider issues, pulls, and releases
package service

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	"codefrog/internal/platform/logger"
	projdom "codefrog/internal/services/projects/domain"
	"codefrog/internal/services/tracker/domain"

	"codefrog/internal/adapters/github"
)

// Provider is the slice of the provider client the tracker drives
type Provider interface {
	Issues(ctx context.Context, auth github.Auth, owner, name string, since *time.Time, fn func(github.Issue) error) error
	Pulls(ctx context.Context, auth github.Auth, owner, name string, fn func(github.Pull) error) error
	Releases(ctx context.Context, auth github.Auth, owner, name string, fn func(github.Release) error) error
}

// AuthFunc resolves provider credentials for a project
type AuthFunc func(ctx context.Context, project projdom.Project) (github.Auth, error)

// Service implements domain.IngesterPort
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[domain.StorageRepo]
	Provider Provider
	AuthFor  AuthFunc
}

// New constructs the tracker service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], provider Provider, authFor AuthFunc) *Service {
	return &Service{DB: db, Binder: binder, Provider: provider, AuthFor: authFor}
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

// ImportIssues streams issues since the given start and upserts them.
// Items that are really pull requests are skipped.
func (s *Service) ImportIssues(ctx context.Context, project projdom.Project, since *time.Time) (int, error) {
	auth, err := s.AuthFor(ctx, project)
	if err != nil {
		return 0, err
	}
	owner, name := project.OwnerName()
	repo := s.repo()

	// widen the bound back to the newest ingested issue so stale
	// projects do not lose the gap between runs
	if since != nil {
		last, err := repo.LastIssueOpenedAt(ctx, project.ID)
		if err != nil {
			return 0, err
		}
		if last != nil && last.Before(*since) {
			since = last
		}
	}

	written := 0
	err = s.Provider.Issues(ctx, auth, owner, name, since, func(it github.Issue) error {
		if it.IsPull() {
			return nil
		}
		labels := it.LabelNames()
		ok, err := repo.UpsertIssue(ctx, domain.Issue{
			ProjectID: project.ID,
			RefID:     it.Number,
			OpenedAt:  it.CreatedAt,
			ClosedAt:  it.ClosedAt,
			Labels:    labels,
			Category:  domain.Categorize(labels, project.EffectiveBugLabels()),
		})
		if err != nil {
			return err
		}
		if ok {
			written++
		}
		return nil
	})
	if err != nil {
		return written, err
	}
	logger.C(ctx).Info().Int64("project_id", project.ID).Int("written", written).Msg("imported issues")
	return written, nil
}

// ImportPulls refreshes closed pull requests
func (s *Service) ImportPulls(ctx context.Context, project projdom.Project) (int, error) {
	auth, err := s.AuthFor(ctx, project)
	if err != nil {
		return 0, err
	}
	owner, name := project.OwnerName()
	repo := s.repo()

	written := 0
	err = s.Provider.Pulls(ctx, auth, owner, name, func(pr github.Pull) error {
		ok, err := repo.UpsertPull(ctx, domain.Pull{
			ProjectID: project.ID,
			RefID:     pr.Number,
			OpenedAt:  pr.CreatedAt,
			MergedAt:  pr.MergedAt,
		})
		if err != nil {
			return err
		}
		if ok {
			written++
		}
		return nil
	})
	if err != nil {
		return written, err
	}
	logger.C(ctx).Info().Int64("project_id", project.ID).Int("written", written).Msg("imported pull requests")
	return written, nil
}

// ImportReleases refreshes published releases, drafts are skipped
func (s *Service) ImportReleases(ctx context.Context, project projdom.Project) (int, error) {
	auth, err := s.AuthFor(ctx, project)
	if err != nil {
		return 0, err
	}
	owner, name := project.OwnerName()
	repo := s.repo()

	written := 0
	err = s.Provider.Releases(ctx, auth, owner, name, func(rel github.Release) error {
		if rel.Draft {
			return nil
		}
		// releases are named by their tag so they line up with git tags
		title := rel.TagName
		if title == "" {
			title = rel.Name
		}
		ok, err := repo.UpsertRelease(ctx, domain.Release{
			ProjectID:  project.ID,
			Name:       title,
			Kind:       domain.KindProvider,
			ReleasedAt: rel.PublishedAt,
			URL:        rel.HTMLURL,
		})
		if err != nil {
			return err
		}
		if ok {
			written++
		}
		return nil
	})
	if err != nil {
		return written, err
	}
	logger.C(ctx).Info().Int64("project_id", project.ID).Int("written", written).Msg("imported releases")
	return written, nil
}
