// Package domain holds source tree snapshot entities and ports
package domain

import "time"

// Node kinds
const (
	KindDir  = "dir"
	KindFile = "file"
)

// Owner is one entry of a file's ownership list
type Owner struct {
	Author  string `json:"author"`
	Commits int    `json:"commits"`
	Percent int    `json:"percent"`
}

// Node is one element of a snapshot tree. Lft and Rgt are nested set
// bounds assigned in a single pass at write time, never maintained
// incrementally.
type Node struct {
	ID          int64
	SnapshotID  int64
	ParentID    *int64
	Name        string
	Path        string
	Kind        string
	Complexity  int64
	ChangeCount int64
	Ownership   []Owner
	RepoLink    string
	Lft         int64
	Rgt         int64
}

// IsFile reports whether the node is a leaf
func (n Node) IsFile() bool { return n.Kind == KindFile }

// Snapshot is one immutable capture of a repository tree
type Snapshot struct {
	ID        int64
	ProjectID int64
	Active    bool
	CreatedAt time.Time
}
