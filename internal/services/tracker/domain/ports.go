package domain

import (
	"context"
	"time"

	projdom "codefrog/internal/services/projects/domain"
)

// IngesterPort is the public surface exposed by the tracker module
type IngesterPort interface {
	// ImportIssues pulls issues since the given start (full history when nil)
	// and upserts them, returns rows written or refreshed
	ImportIssues(ctx context.Context, project projdom.Project, since *time.Time) (int, error)

	// ImportPulls refreshes closed pull requests, returns rows written
	ImportPulls(ctx context.Context, project projdom.Project) (int, error)

	// ImportReleases refreshes published releases, returns rows written
	ImportReleases(ctx context.Context, project projdom.Project) (int, error)
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	UpsertIssue(ctx context.Context, is Issue) (bool, error)
	UpsertPull(ctx context.Context, pr Pull) (bool, error)
	UpsertRelease(ctx context.Context, rel Release) (bool, error)
	LastIssueOpenedAt(ctx context.Context, projectID int64) (*time.Time, error)
}
