package domain

import (
	"context"
	"time"

	projdom "codefrog/internal/services/projects/domain"
)

// BuilderPort is the public surface exposed by the sourcetree module
type BuilderPort interface {
	// Build captures the current working tree as a new snapshot and
	// atomically makes it the active one, returns the snapshot id
	Build(ctx context.Context, project projdom.Project) (int64, error)

	// ActiveNodes returns the active snapshot's nodes ordered by lft
	ActiveNodes(ctx context.Context, projectID int64) ([]Node, error)

	// ComplexityAt returns the whole tree complexity with the working copy
	// reset to the given commit
	ComplexityAt(ctx context.Context, project projdom.Project, commit string) (int64, error)
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	CreateSnapshot(ctx context.Context, projectID int64) (int64, error)
	InsertNode(ctx context.Context, n Node) (int64, error)

	// ActivateSnapshot flips the previous active snapshot off and the new
	// one on, callers run it inside the same transaction as the inserts
	ActivateSnapshot(ctx context.Context, projectID, snapshotID int64) error

	// ChangeCounts returns per file change counts since the given time
	ChangeCounts(ctx context.Context, projectID int64, since time.Time) (map[string]int64, error)

	ActiveNodes(ctx context.Context, projectID int64) ([]Node, error)
}
