// Package service dispatches verified provider webhooks into the pipeline
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"
	pipedom "codefrog/internal/services/pipeline/domain"
	projdom "codefrog/internal/services/projects/domain"
	treedom "codefrog/internal/services/sourcetree/domain"
	"codefrog/internal/services/webhook/domain"

	"codefrog/internal/adapters/github"

	"github.com/go-playground/validator/v10"
)

// RepoFetcher resolves repository metadata for an installation
type RepoFetcher func(ctx context.Context, installationID int64, owner, name string) (github.Repo, error)

// Service implements domain.ReceiverPort
type Service struct {
	Projects  projdom.ReaderPort
	Writer    projdom.WriterPort
	Pipeline  pipedom.OrchestratorPort
	Trees     treedom.BuilderPort
	FetchRepo RepoFetcher

	registry *Registry
	validate *validator.Validate
}

// New constructs the webhook service and populates the event registry
func New(projects projdom.ReaderPort, writer projdom.WriterPort, pipeline pipedom.OrchestratorPort, trees treedom.BuilderPort, fetch RepoFetcher) *Service {
	s := &Service{
		Projects:  projects,
		Writer:    writer,
		Pipeline:  pipeline,
		Trees:     trees,
		FetchRepo: fetch,
		registry:  NewRegistry(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}

	s.registry.Register("installation", "created", s.installationCreated)
	s.registry.Register("installation", "deleted", s.installationDeleted)
	s.registry.Register("installation_repositories", "added", s.repositoriesAdded)
	s.registry.Register("push", "", s.push)
	s.registry.Register("check_suite", "requested", s.checkSuiteRequested)
	return s
}

// Receive implements domain.ReceiverPort
func (s *Service) Receive(ctx context.Context, event domain.Event) (domain.Outcome, error) {
	return s.registry.Dispatch(ctx, event)
}

// Slugify turns a repository full name into a project slug
func Slugify(fullName string) string {
	return strings.ToLower(strings.ReplaceAll(fullName, "/", "-"))
}

func decode[T any](s *Service, event domain.Event) (T, error) {
	var payload T
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		var zero T
		return zero, perr.Wrap(err, perr.ErrorCodeValidation, "decode webhook payload")
	}
	if err := s.validate.Struct(payload); err != nil {
		var zero T
		return zero, perr.Wrap(err, perr.ErrorCodeValidation, "invalid webhook payload")
	}
	return payload, nil
}

// installationCreated registers every repository of a fresh installation
// and queues their first full ingest
func (s *Service) installationCreated(ctx context.Context, event domain.Event) (string, error) {
	payload, err := decode[domain.InstallationEvent](s, event)
	if err != nil {
		return "", err
	}
	return s.registerRepos(ctx, payload.Installation.ID, payload.Repositories)
}

// repositoriesAdded handles repos added to an existing installation
func (s *Service) repositoriesAdded(ctx context.Context, event domain.Event) (string, error) {
	payload, err := decode[domain.InstallationEvent](s, event)
	if err != nil {
		return "", err
	}
	return s.registerRepos(ctx, payload.Installation.ID, payload.RepositoriesAdded)
}

func (s *Service) registerRepos(ctx context.Context, installationID int64, repos []domain.EventRepo) (string, error) {
	registered := 0
	for _, r := range repos {
		owner, name, ok := strings.Cut(r.FullName, "/")
		if !ok {
			logger.C(ctx).Warn().Str("full_name", r.FullName).Msg("skipping malformed repository name")
			continue
		}

		// the installation payload omits clone_url and privacy, fetch them
		meta, err := s.FetchRepo(ctx, installationID, owner, name)
		if err != nil {
			return "", err
		}

		project, err := s.Writer.Create(ctx, projdom.CreateInput{
			Name:           meta.Name,
			Slug:           Slugify(meta.FullName),
			GitURL:         meta.CloneURL,
			ExternalID:     meta.ID,
			InstallationID: installationID,
			Private:        meta.Private,
		})
		if err != nil {
			return "", err
		}
		registered++

		if _, err := s.Pipeline.EnqueueIngest(ctx, project.ID); err != nil {
			// a concurrent run is fine, the project is registered either way
			if !perr.IsCode(err, perr.ErrorCodeConflict) {
				return "", err
			}
		}
	}
	return fmt.Sprintf("registered %d repositories", registered), nil
}

// installationDeleted takes every repository of the installation out of rotation
func (s *Service) installationDeleted(ctx context.Context, event domain.Event) (string, error) {
	payload, err := decode[domain.InstallationEvent](s, event)
	if err != nil {
		return "", err
	}
	deactivated := 0
	for _, r := range payload.Repositories {
		project, err := s.Projects.BySlug(ctx, Slugify(r.FullName))
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeNotFound) {
				continue
			}
			return "", err
		}
		if err := s.Writer.Deactivate(ctx, project.ID); err != nil {
			return "", err
		}
		deactivated++
	}
	return fmt.Sprintf("deactivated %d repositories", deactivated), nil
}

// push queues an incremental update for the pushed repository
func (s *Service) push(ctx context.Context, event domain.Event) (string, error) {
	payload, err := decode[domain.PushEvent](s, event)
	if err != nil {
		return "", err
	}
	project, err := s.Projects.BySlug(ctx, Slugify(payload.Repository.FullName))
	if err != nil {
		return "", err
	}

	runID, err := s.Pipeline.EnqueueUpdate(ctx, project.ID)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeConflict) {
			return "update already running", nil
		}
		return "", err
	}
	return fmt.Sprintf("queued update run %s", runID), nil
}

// checkSuiteRequested runs the complexity check for the pushed commit range
func (s *Service) checkSuiteRequested(ctx context.Context, event domain.Event) (string, error) {
	payload, err := decode[domain.CheckSuiteEvent](s, event)
	if err != nil {
		return "", err
	}
	result, err := s.ComplexityCheck(ctx,
		Slugify(payload.Repository.FullName),
		payload.CheckSuite.Before,
		payload.CheckSuite.After,
	)
	if err != nil {
		return "", err
	}

	logger.C(ctx).Info().
		Str("repository", payload.Repository.FullName).
		Float64("change_percent", result.Change).
		Str("conclusion", result.Conclusion).
		Msg("complexity check finished")
	return result.Title, nil
}

// ComplexityCheck implements domain.ReceiverPort
func (s *Service) ComplexityCheck(ctx context.Context, projectSlug, before, after string) (domain.CheckResult, error) {
	project, err := s.Projects.BySlug(ctx, projectSlug)
	if err != nil {
		return domain.CheckResult{}, err
	}

	beforeC, err := s.Trees.ComplexityAt(ctx, project, before)
	if err != nil {
		return domain.CheckResult{}, err
	}
	afterC, err := s.Trees.ComplexityAt(ctx, project, after)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if beforeC == 0 {
		return domain.CheckResult{}, perr.Newf(perr.ErrorCodeValidation, "tree at %s has no measurable complexity", before)
	}

	change := math.Round((100/float64(beforeC)*float64(afterC)-100)*10) / 10
	return bandChange(change), nil
}

// bandChange turns a percentage change into a check conclusion and a
// human readable summary
func bandChange(change float64) domain.CheckResult {
	result := domain.CheckResult{
		Change: change,
		Title:  fmt.Sprintf("Complexity: %+.1f%%", change),
	}
	switch {
	case change <= 0:
		result.Conclusion = domain.ConclusionSuccess
		result.Summary = fmt.Sprintf("You have decreased the complexity of the system by %+.1f%%. Well done!", change)
	case change <= 2.5:
		result.Conclusion = domain.ConclusionNeutral
		result.Summary = fmt.Sprintf("You have increased the complexity of the system by %+.1f%%. This is OK.", change)
	case change <= 5:
		result.Conclusion = domain.ConclusionNeutral
		result.Summary = fmt.Sprintf("You have increased the complexity of the system by %+.1f%%. Keep an eye on the overall complexity.", change)
	default:
		result.Conclusion = domain.ConclusionNeutral
		result.Summary = fmt.Sprintf("You have increased the complexity of the system by %+.1f%%. Maybe see if you can refactor your code to have less complexity.", change)
	}
	return result
}
