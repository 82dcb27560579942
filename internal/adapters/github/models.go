package github

import (
	"encoding/json"
	"time"
)

// Issue is a partial GitHub issue document with fields we use
// Items carrying a pull_request stanza are pull requests surfaced
// through the issues endpoint and must be skipped
type Issue struct {
	Number      int64           `json:"number"`
	CreatedAt   time.Time       `json:"created_at"`
	ClosedAt    *time.Time      `json:"closed_at"`
	Labels      []Label         `json:"labels"`
	PullRequest json.RawMessage `json:"pull_request"`
}

// IsPull reports whether the item is really a pull request
func (i Issue) IsPull() bool { return len(i.PullRequest) > 0 }

// LabelNames flattens labels to their names
func (i Issue) LabelNames() []string {
	out := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		out = append(out, l.Name)
	}
	return out
}

// Label is a partial GitHub label document
type Label struct {
	Name string `json:"name"`
}

// Pull is a partial GitHub pull request document
type Pull struct {
	Number    int64      `json:"number"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at"`
	State     string     `json:"state"`
}

// Release is a partial GitHub release document
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
}

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	CloneURL      string `json:"clone_url"`
	HTMLURL       string `json:"html_url"`
	Owner         Owner  `json:"owner"`
}

// Owner is a partial GitHub user or org document
type Owner struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}
