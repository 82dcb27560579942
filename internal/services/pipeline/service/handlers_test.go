package service

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	metdom "codefrog/internal/services/metrics/domain"
	"codefrog/internal/services/pipeline/domain"
	projdom "codefrog/internal/services/projects/domain"
	treedom "codefrog/internal/services/sourcetree/domain"

	"codefrog/internal/adapters/gitcli"
	"codefrog/internal/adapters/github"
	"codefrog/internal/adapters/shell"
)

type fakeReader struct{ p projdom.Project }

func (f fakeReader) ByID(context.Context, int64) (projdom.Project, error) { return f.p, nil }
func (f fakeReader) BySlug(context.Context, string) (projdom.Project, error) {
	return f.p, nil
}
func (f fakeReader) ListActive(context.Context) ([]projdom.Project, error) {
	return []projdom.Project{f.p}, nil
}

type fakeHistory struct {
	calls []string
	start *time.Time
}

func (f *fakeHistory) ImportCodeChanges(_ context.Context, _ projdom.Project, start *time.Time) (int, error) {
	f.calls = append(f.calls, "code_changes")
	f.start = start
	return 1, nil
}

func (f *fakeHistory) ImportTags(context.Context, projdom.Project) (int, error) {
	f.calls = append(f.calls, "tags")
	return 1, nil
}

type fakeTracker struct {
	calls []string
	err   error
}

func (f *fakeTracker) ImportIssues(_ context.Context, _ projdom.Project, _ *time.Time) (int, error) {
	f.calls = append(f.calls, "issues")
	return 0, f.err
}

func (f *fakeTracker) ImportPulls(context.Context, projdom.Project) (int, error) {
	f.calls = append(f.calls, "pulls")
	return 0, f.err
}

func (f *fakeTracker) ImportReleases(context.Context, projdom.Project) (int, error) {
	f.calls = append(f.calls, "releases")
	return 0, f.err
}

type fakeMetrics struct {
	calls []string
	start *time.Time
}

func (f *fakeMetrics) AggregateCode(_ context.Context, _ int64, start *time.Time) (int, error) {
	f.calls = append(f.calls, "code")
	f.start = start
	return 1, nil
}

func (f *fakeMetrics) AggregateIssues(context.Context, int64) (int, error) {
	f.calls = append(f.calls, "issues")
	return 1, nil
}

func (f *fakeMetrics) AggregatePulls(context.Context, int64) (int, error) {
	f.calls = append(f.calls, "pulls")
	return 1, nil
}

func (f *fakeMetrics) AggregateFileComplexity(context.Context, int64) (int, error) {
	f.calls = append(f.calls, "files")
	return 1, nil
}

func (f *fakeMetrics) Series(context.Context, int64, time.Time, time.Time) ([]metdom.SeriesPoint, error) {
	return nil, nil
}

func (f *fakeMetrics) FileComplexityTrend(context.Context, int64, string, int) ([]metdom.TrendPoint, error) {
	return nil, nil
}

func (f *fakeMetrics) FileChangesTrend(context.Context, int64, string, int) ([]metdom.TrendPoint, error) {
	return nil, nil
}

type fakeTrees struct{ built bool }

func (f *fakeTrees) Build(context.Context, projdom.Project) (int64, error) {
	f.built = true
	return 1, nil
}

func (f *fakeTrees) ActiveNodes(context.Context, int64) ([]treedom.Node, error) { return nil, nil }

func (f *fakeTrees) ComplexityAt(context.Context, projdom.Project, string) (int64, error) {
	return 0, nil
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestEnsureLocalClonesAndRecordsBranch(t *testing.T) {
	requireGit(t)

	origin := t.TempDir()
	gitRun(t, origin, "init", "-b", "main")
	if err := os.WriteFile(filepath.Join(origin, "README"), []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, origin, "add", ".")
	gitRun(t, origin, "commit", "-m", "initial")

	project := projdom.Project{ID: 7, Slug: "acme-api", GitURL: origin}
	writer := &fakeProjects{}
	repos := gitcli.NewRepoManager(shell.New(), t.TempDir(), t.TempDir())

	handlers := Handlers(StageDeps{
		Repos:    repos,
		Projects: fakeReader{p: project},
		Writer:   writer,
	})

	task := domain.Task{Kind: domain.TaskEnsureLocal, ProjectID: 7, Payload: domain.Payload{ProjectID: 7}}
	if err := handlers[domain.TaskEnsureLocal](context.Background(), task); err != nil {
		t.Fatalf("ensure local: %v", err)
	}
	if writer.branch != "main" {
		t.Fatalf("branch = %q, want main", writer.branch)
	}
	if _, err := os.Stat(filepath.Join(repos.LocalPath("acme-api"), ".git")); err != nil {
		t.Fatalf("canonical clone missing: %v", err)
	}
}

func TestHandlersForwardStartBound(t *testing.T) {
	history := &fakeHistory{}
	metrics := &fakeMetrics{}
	handlers := Handlers(StageDeps{
		Projects: fakeReader{p: projdom.Project{ID: 7}},
		Writer:   &fakeProjects{},
		History:  history,
		Metrics:  metrics,
	})

	start := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	task := domain.Task{ProjectID: 7, Payload: domain.Payload{ProjectID: 7, Start: &start}}

	task.Kind = domain.TaskCodeChanges
	if err := handlers[domain.TaskCodeChanges](context.Background(), task); err != nil {
		t.Fatalf("code changes: %v", err)
	}
	if history.start == nil || !history.start.Equal(start) {
		t.Fatalf("history start = %v, want %v", history.start, start)
	}

	task.Kind = domain.TaskCodeMetrics
	if err := handlers[domain.TaskCodeMetrics](context.Background(), task); err != nil {
		t.Fatalf("code metrics: %v", err)
	}
	if metrics.start == nil || !metrics.start.Equal(start) {
		t.Fatalf("metrics start = %v, want %v", metrics.start, start)
	}
}

func TestTrackerHandlerDeactivatesOnPermanentError(t *testing.T) {
	writer := &fakeProjects{}
	tracker := &fakeTracker{err: &github.StatusError{Status: 404, URL: "/repos/acme/api/issues"}}
	handlers := Handlers(StageDeps{
		Projects: fakeReader{p: projdom.Project{ID: 7}},
		Writer:   writer,
		Tracker:  tracker,
	})

	task := domain.Task{Kind: domain.TaskIssues, ProjectID: 7, Payload: domain.Payload{ProjectID: 7}}
	err := handlers[domain.TaskIssues](context.Background(), task)
	if err == nil {
		t.Fatal("permanent provider error must still fail the task")
	}
	if !writer.deactivated {
		t.Fatal("project must be deactivated on a permanent provider error")
	}
}

func TestTrackerHandlerKeepsProjectOnTransientError(t *testing.T) {
	writer := &fakeProjects{}
	tracker := &fakeTracker{err: errors.New("connection reset")}
	handlers := Handlers(StageDeps{
		Projects: fakeReader{p: projdom.Project{ID: 7}},
		Writer:   writer,
		Tracker:  tracker,
	})

	task := domain.Task{Kind: domain.TaskPulls, ProjectID: 7, Payload: domain.Payload{ProjectID: 7}}
	if err := handlers[domain.TaskPulls](context.Background(), task); err == nil {
		t.Fatal("transient error must fail the task")
	}
	if writer.deactivated {
		t.Fatal("transient errors must not deactivate the project")
	}
}

func TestSourceTreeHandlerBuilds(t *testing.T) {
	trees := &fakeTrees{}
	handlers := Handlers(StageDeps{
		Projects: fakeReader{p: projdom.Project{ID: 7}},
		Writer:   &fakeProjects{},
		Trees:    trees,
	})

	task := domain.Task{Kind: domain.TaskSourceTree, ProjectID: 7, Payload: domain.Payload{ProjectID: 7}}
	if err := handlers[domain.TaskSourceTree](context.Background(), task); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !trees.built {
		t.Fatal("tree build not invoked")
	}
}
