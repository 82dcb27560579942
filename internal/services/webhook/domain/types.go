// Package domain holds provider webhook entities and ports
package domain

import "encoding/json"

// Event is one verified webhook delivery
type Event struct {
	Name     string // X-Github-Event header
	Action   string // payload action, empty for actionless events like push
	Delivery string // X-Github-Delivery header
	Payload  json.RawMessage
}

// Outcome is what dispatching an event produced. Unhandled deliveries are
// a normal result, not an error.
type Outcome struct {
	Handled bool
	Message string
}

// EventRepo is the repository stanza shared by several payloads
type EventRepo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name" validate:"required"`
	Private  bool   `json:"private"`
	CloneURL string `json:"clone_url"`
}

// InstallationEvent covers installation and installation_repositories events
type InstallationEvent struct {
	Action       string `json:"action"`
	Installation struct {
		ID int64 `json:"id" validate:"required"`
	} `json:"installation"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	Repositories      []EventRepo `json:"repositories"`
	RepositoriesAdded []EventRepo `json:"repositories_added"`
}

// PushEvent is the payload of a push delivery
type PushEvent struct {
	Ref        string    `json:"ref"`
	Repository EventRepo `json:"repository" validate:"required"`
}

// CheckSuiteEvent is the payload of a check_suite delivery
type CheckSuiteEvent struct {
	Action     string    `json:"action"`
	Repository EventRepo `json:"repository" validate:"required"`
	CheckSuite struct {
		Before     string `json:"before" validate:"required"`
		After      string `json:"after" validate:"required"`
		HeadBranch string `json:"head_branch"`
	} `json:"check_suite"`
}

// Check conclusions
const (
	ConclusionSuccess = "success"
	ConclusionNeutral = "neutral"
)

// CheckResult is the outcome of a complexity check on a commit range
type CheckResult struct {
	Change     float64 `json:"change_percent"`
	Conclusion string  `json:"conclusion"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
}
