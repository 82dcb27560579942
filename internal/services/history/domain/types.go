// Package domain holds the core types for git history ingestion
package domain

import "time"

// CodeChange is one row per commit and touched file
// Immutable after creation, natural key (project, hash, path)
type CodeChange struct {
	ProjectID         int64
	CommitHash        string
	Timestamp         time.Time
	AuthorName        string
	AuthorEmail       string
	FilePath          string
	ComplexityAdded   int64
	ComplexityRemoved int64
	Description       string
}

// Author renders the identity string stored alongside a change
func (c CodeChange) Author() string {
	if c.AuthorEmail == "" {
		return c.AuthorName
	}
	return c.AuthorName + " <" + c.AuthorEmail + ">"
}
