package service

import (
	"context"

	"codefrog/internal/platform/logger"
	histdom "codefrog/internal/services/history/domain"
	metdom "codefrog/internal/services/metrics/domain"
	"codefrog/internal/services/pipeline/domain"
	projdom "codefrog/internal/services/projects/domain"
	treedom "codefrog/internal/services/sourcetree/domain"
	trackdom "codefrog/internal/services/tracker/domain"

	"codefrog/internal/adapters/gitcli"
	"codefrog/internal/adapters/github"
)

// StageDeps collects the module ports the pipeline stages drive
type StageDeps struct {
	Repos    *gitcli.RepoManager
	Projects projdom.ReaderPort
	Writer   projdom.WriterPort
	History  histdom.IngesterPort
	Tracker  trackdom.IngesterPort
	Metrics  metdom.AggregatorPort
	Trees    treedom.BuilderPort

	// TokenFor resolves a clone token for private repositories, nil when
	// the deployment has no app credentials
	TokenFor func(ctx context.Context, project projdom.Project) (string, error)
}

// Handlers binds every task kind to its stage
func Handlers(d StageDeps) map[string]domain.Handler {
	project := func(ctx context.Context, t domain.Task) (projdom.Project, error) {
		return d.Projects.ByID(ctx, t.Payload.ProjectID)
	}

	// provider errors that are permanent (revoked install, deleted repo)
	// take the project out of rotation instead of retrying forever
	deactivateOnPermanent := func(ctx context.Context, p projdom.Project, err error) error {
		if err != nil && github.IsPermanent(err) {
			logger.C(ctx).Warn().Int64("project_id", p.ID).Err(err).Msg("provider rejected project permanently")
			if dErr := d.Writer.Deactivate(ctx, p.ID); dErr != nil {
				logger.C(ctx).Error().Err(dErr).Msg("deactivate failed")
			}
		}
		return err
	}

	return map[string]domain.Handler{
		domain.TaskEnsureLocal: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			remote := p.GitURL
			if p.Private && d.TokenFor != nil {
				token, err := d.TokenFor(ctx, p)
				if err != nil {
					return deactivateOnPermanent(ctx, p, err)
				}
				remote = gitcli.InjectToken(remote, token)
			}
			_, branch, err := d.Repos.EnsureLocal(ctx, remote, p.Slug)
			if err != nil {
				return err
			}
			return d.Writer.SetBranch(ctx, p.ID, branch)
		},

		domain.TaskCodeChanges: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			_, err = d.History.ImportCodeChanges(ctx, p, t.Payload.Start)
			return err
		},

		domain.TaskGitTags: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			_, err = d.History.ImportTags(ctx, p)
			return err
		},

		domain.TaskIssues: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			_, err = d.Tracker.ImportIssues(ctx, p, t.Payload.Start)
			return deactivateOnPermanent(ctx, p, err)
		},

		domain.TaskPulls: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			_, err = d.Tracker.ImportPulls(ctx, p)
			return deactivateOnPermanent(ctx, p, err)
		},

		domain.TaskReleases: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			_, err = d.Tracker.ImportReleases(ctx, p)
			return deactivateOnPermanent(ctx, p, err)
		},

		domain.TaskCodeMetrics: func(ctx context.Context, t domain.Task) error {
			_, err := d.Metrics.AggregateCode(ctx, t.Payload.ProjectID, t.Payload.Start)
			return err
		},

		domain.TaskIssueMetrics: func(ctx context.Context, t domain.Task) error {
			_, err := d.Metrics.AggregateIssues(ctx, t.Payload.ProjectID)
			return err
		},

		domain.TaskPullMetrics: func(ctx context.Context, t domain.Task) error {
			_, err := d.Metrics.AggregatePulls(ctx, t.Payload.ProjectID)
			return err
		},

		domain.TaskFileComplexity: func(ctx context.Context, t domain.Task) error {
			_, err := d.Metrics.AggregateFileComplexity(ctx, t.Payload.ProjectID)
			return err
		},

		domain.TaskSourceTree: func(ctx context.Context, t domain.Task) error {
			p, err := project(ctx, t)
			if err != nil {
				return err
			}
			_, err = d.Trees.Build(ctx, p)
			return err
		},
	}
}
