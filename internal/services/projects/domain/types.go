// Package domain holds the core types for tracked projects
package domain

import (
	"strings"
	"time"
)

// Status is the pipeline gate for a project
type Status string

const (
	// StatusReady means no pipeline is running and a new one may be queued
	StatusReady Status = "ready"
	// StatusQueued means a pipeline is enqueued but not yet picked up
	StatusQueued Status = "queued"
	// StatusUpdating means a pipeline instance is executing
	StatusUpdating Status = "updating"
)

// CanTransition reports whether moving from s to next is a legal step
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusReady:
		return next == StatusQueued
	case StatusQueued:
		return next == StatusUpdating || next == StatusReady
	case StatusUpdating:
		return next == StatusReady
	}
	return false
}

// defaultBugLabels is used when a project configures none
var defaultBugLabels = []string{"bug", "Bug", "BUG", "type:bug"}

// Project is a tracked repository
type Project struct {
	ID             int64
	Name           string
	Slug           string
	GitURL         string
	DefaultBranch  string
	Provider       string
	ExternalID     int64
	InstallationID int64
	Private        bool
	Active         bool
	Status         Status
	BugLabels      []string
	LastUpdate     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveBugLabels returns the configured bug label set or the default fallback
func (p Project) EffectiveBugLabels() []string {
	if len(p.BugLabels) > 0 {
		return p.BugLabels
	}
	return defaultBugLabels
}

// OwnerName derives the provider owner and repository name from the remote URL
func (p Project) OwnerName() (owner, name string) {
	s := strings.TrimSuffix(p.GitURL, ".git")
	s = strings.TrimSuffix(s, "/")
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

// RepoLink renders a browse URL for a repo relative path on the default branch
func (p Project) RepoLink(path string) string {
	base := strings.TrimSuffix(p.GitURL, ".git")
	branch := p.DefaultBranch
	if branch == "" {
		branch = "master"
	}
	return base + "/blob/" + branch + "/" + strings.TrimPrefix(path, "/")
}
