package domain

import (
	"context"
	"time"

	projdom "codefrog/internal/services/projects/domain"
)

// IngesterPort is the public surface exposed by the history module
type IngesterPort interface {
	// ImportCodeChanges walks commits from start (or the first commit when nil)
	// and upserts one CodeChange per touched file, returns rows written
	ImportCodeChanges(ctx context.Context, project projdom.Project, start *time.Time) (int, error)

	// ImportTags upserts one Release per git tag, returns rows written
	ImportTags(ctx context.Context, project projdom.Project) (int, error)
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	UpsertChange(ctx context.Context, ch CodeChange) (bool, error)
	UpsertGitTag(ctx context.Context, projectID int64, name string, ts time.Time) (bool, error)
	LastChangeTimestamp(ctx context.Context, projectID int64) (*time.Time, error)
}
