// Package domain holds pipeline orchestration entities and ports
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run kinds
const (
	RunIngest = "ingest"
	RunUpdate = "update"
)

// Run and task statuses
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Task kinds, one per pipeline stage
const (
	TaskEnsureLocal    = "repo.ensure_local"
	TaskCodeChanges    = "history.code_changes"
	TaskGitTags        = "history.tags"
	TaskIssues         = "tracker.issues"
	TaskPulls          = "tracker.pulls"
	TaskReleases       = "tracker.releases"
	TaskCodeMetrics    = "metrics.code"
	TaskIssueMetrics   = "metrics.issues"
	TaskPullMetrics    = "metrics.pulls"
	TaskFileComplexity = "metrics.files"
	TaskSourceTree     = "sourcetree.build"
)

// Run is one pipeline instance for a project
type Run struct {
	ID         uuid.UUID
	ProjectID  int64
	Kind       string
	Status     string
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Payload carries the stage arguments, serialized to the task row
type Payload struct {
	ProjectID int64      `json:"project_id"`
	Start     *time.Time `json:"start,omitempty"`
}

// Task is one node of the pipeline DAG. DependsOn lists task ids that must
// succeed before this task becomes claimable.
type Task struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	ProjectID  int64
	Kind       string
	Payload    Payload
	Status     string
	DependsOn  []uuid.UUID
	Attempts   int
	NotBefore  time.Time
	ExpiresAt  time.Time
	ClaimedBy  string
	ClaimedAt  *time.Time
	FinishedAt *time.Time
	Error      string
}

// Expired reports whether the task's TTL has passed
func (t Task) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }
