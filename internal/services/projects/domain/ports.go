package domain

import (
	"context"
	"time"
)

// ReaderPort is the public read surface other modules use
type ReaderPort interface {
	ByID(ctx context.Context, id int64) (Project, error)
	BySlug(ctx context.Context, slug string) (Project, error)
	ListActive(ctx context.Context) ([]Project, error)
}

// WriterPort mutates project state, status transitions included
type WriterPort interface {
	Create(ctx context.Context, in CreateInput) (Project, error)
	SetStatus(ctx context.Context, id int64, from, to Status) error
	SetBranch(ctx context.Context, id int64, branch string) error
	MarkUpdated(ctx context.Context, id int64, at time.Time) error
	Deactivate(ctx context.Context, id int64) error
	Purge(ctx context.Context, id int64) error
}

// Ports bundles the project module surface
type Ports struct {
	Reader ReaderPort
	Writer WriterPort
}

// CreateInput is the payload for registering a project
type CreateInput struct {
	Name           string `validate:"required"`
	Slug           string `validate:"required,max=255"`
	GitURL         string `validate:"required,url"`
	ExternalID     int64
	InstallationID int64
	Private        bool
	BugLabels      []string
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	ByID(ctx context.Context, id int64) (Project, error)
	BySlug(ctx context.Context, slug string) (Project, error)
	ListActive(ctx context.Context) ([]Project, error)
	Upsert(ctx context.Context, in CreateInput) (Project, error)
	SetStatus(ctx context.Context, id int64, from, to Status) (bool, error)
	SetBranch(ctx context.Context, id int64, branch string) error
	MarkUpdated(ctx context.Context, id int64, at time.Time) error
	SetActive(ctx context.Context, id int64, active bool) error
	PurgeDerived(ctx context.Context, id int64) error
}
