// Package domain holds issue tracker entities and ports
package domain

import (
	"strings"
	"time"
)

// Issue categories
const (
	CategoryBug    = "bug"
	CategoryChange = "change"
)

// Issue is one tracked issue keyed by the provider's issue number
type Issue struct {
	ProjectID int64
	RefID     int64
	OpenedAt  time.Time
	ClosedAt  *time.Time
	Labels    []string
	Category  string
}

// Categorize classifies an issue's labels against the project's bug label
// set. An exact label match wins, then a substring match; everything else
// is a change.
func Categorize(labels, bugLabels []string) string {
	for _, l := range labels {
		for _, b := range bugLabels {
			if l == b {
				return CategoryBug
			}
		}
	}
	for _, l := range labels {
		for _, b := range bugLabels {
			if strings.Contains(l, b) {
				return CategoryBug
			}
		}
	}
	return CategoryChange
}

// Open reports whether the issue was still open at t
func (i Issue) Open(t time.Time) bool {
	if i.OpenedAt.After(t) {
		return false
	}
	return i.ClosedAt == nil || i.ClosedAt.After(t)
}

// Pull is one closed pull request keyed by the provider's number
type Pull struct {
	ProjectID int64
	RefID     int64
	OpenedAt  time.Time
	MergedAt  *time.Time
}

// Release is one published release or git tag
type Release struct {
	ProjectID  int64
	Name       string
	Kind       string
	ReleasedAt time.Time
	URL        string
}

// Release kinds
const (
	KindGitTag   = "git_tag"
	KindProvider = "release"
)
