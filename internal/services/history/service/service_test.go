package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codefrog/internal/modkit/repokit"
	"codefrog/internal/services/history/domain"
	projdom "codefrog/internal/services/projects/domain"

	"codefrog/internal/adapters/gitcli"
)

// scriptRunner answers commands by first matching substring
type scriptRunner struct {
	script map[string]string
}

func (s *scriptRunner) Run(_ context.Context, cmd, _ string) string {
	for k, v := range s.script {
		if strings.Contains(cmd, k) {
			return v
		}
	}
	return ""
}

// fakeRepo records writes, safe for concurrent workers
type fakeRepo struct {
	mu      sync.Mutex
	changes []domain.CodeChange
	tags    []string
	last    *time.Time
}

func (f *fakeRepo) UpsertChange(_ context.Context, ch domain.CodeChange) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, ch)
	return true, nil
}

func (f *fakeRepo) UpsertGitTag(_ context.Context, _ int64, name string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, name)
	return true, nil
}

func (f *fakeRepo) LastChangeTimestamp(context.Context, int64) (*time.Time, error) {
	return f.last, nil
}

func bindFake(f *fakeRepo) repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return f })
}

func newTestService(t *testing.T, sh *scriptRunner, f *fakeRepo, cfg Config) *Service {
	t.Helper()
	cache := t.TempDir()
	repos := gitcli.NewRepoManager(sh, cache, t.TempDir())
	return New(nil, bindFake(f), repos, gitcli.NewHistoryReader(sh), gitcli.NewChangeExtractor(sh), cfg)
}

func TestEffectiveStart(t *testing.T) {
	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := EffectiveStart(nil, first); !got.Equal(first) {
		t.Errorf("nil request: got %v, want first commit", got)
	}
	if got := EffectiveStart(&earlier, first); !got.Equal(first) {
		t.Errorf("earlier request: got %v, want first commit", got)
	}
	if got := EffectiveStart(&later, first); !got.Equal(later) {
		t.Errorf("later request: got %v, want request", got)
	}
}

func TestChunks(t *testing.T) {
	commits := make([]gitcli.Commit, 7)
	got := chunks(commits, 3)
	if len(got) != 3 || len(got[0]) != 3 || len(got[2]) != 1 {
		t.Fatalf("chunks(7, 3) sizes wrong: %d chunks", len(got))
	}
	if chunks(nil, 3) != nil {
		t.Error("chunks of empty input should be nil")
	}
}

func TestImportCodeChanges(t *testing.T) {
	sh := &scriptRunner{script: map[string]string{
		"rev-list --max-parents=0": "commit aaa\n2020-01-01T00:00:00Z",
		"git log --reverse": strings.Join([]string{
			"2020-01-02T10:00:00Z;~;h1;~;Jane;~;jane@example.com",
			"2020-01-03T10:00:00Z;~;h2;~;Bob;~;bob@example.com",
		}, "\n"),
		"--name-only -r h1":            "main.py",
		"--name-only -r h2":            "gone.py",
		`-r h1 -- 'main.py' | grep -v "^+++ "`: "+    a\n+  b",
		`-r h1 -- 'main.py' | grep -v "^--- "`: "-  x",
		"--format=%B -n 1 h1":          "add feature",
	}}
	f := &fakeRepo{}
	svc := newTestService(t, sh, f, Config{ChunkSize: 1, Workers: 2})

	// main.py must exist on disk, gone.py must not
	project := projdom.Project{ID: 7, Slug: "acme"}
	dir := svc.Repos.LocalPath("acme")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := svc.ImportCodeChanges(context.Background(), project, nil)
	if err != nil {
		t.Fatalf("ImportCodeChanges: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 inserted row, got %d", n)
	}
	if len(f.changes) != 1 {
		t.Fatalf("want 1 recorded change, got %d", len(f.changes))
	}
	ch := f.changes[0]
	if ch.ProjectID != 7 || ch.CommitHash != "h1" || ch.FilePath != "main.py" {
		t.Errorf("unexpected change identity: %+v", ch)
	}
	if ch.ComplexityAdded != 6 || ch.ComplexityRemoved != 2 {
		t.Errorf("complexity = +%d/-%d, want +6/-2", ch.ComplexityAdded, ch.ComplexityRemoved)
	}
	if ch.Description != "add feature" {
		t.Errorf("description = %q", ch.Description)
	}
	if ch.AuthorName != "Jane" || ch.AuthorEmail != "jane@example.com" {
		t.Errorf("author = %q <%q>", ch.AuthorName, ch.AuthorEmail)
	}
}

func TestImportCodeChangesEmptyHistory(t *testing.T) {
	sh := &scriptRunner{script: map[string]string{
		"rev-list --max-parents=0": "commit aaa\n2020-01-01T00:00:00Z",
	}}
	f := &fakeRepo{}
	svc := newTestService(t, sh, f, Config{})

	n, err := svc.ImportCodeChanges(context.Background(), projdom.Project{ID: 1, Slug: "empty"}, nil)
	if err != nil {
		t.Fatalf("ImportCodeChanges: %v", err)
	}
	if n != 0 || len(f.changes) != 0 {
		t.Errorf("want no writes, got %d/%d", n, len(f.changes))
	}
}

func TestImportCodeChangesNoRepo(t *testing.T) {
	sh := &scriptRunner{script: map[string]string{}}
	svc := newTestService(t, sh, &fakeRepo{}, Config{})

	if _, err := svc.ImportCodeChanges(context.Background(), projdom.Project{Slug: "missing"}, nil); err == nil {
		t.Fatal("want error when repository has no commits")
	}
}

func TestImportTags(t *testing.T) {
	sh := &scriptRunner{script: map[string]string{
		"git tag --list": strings.Join([]string{
			"v1.0.0;Wed Apr 1 12:00:00 2020 +0000;Wed Apr 1 11:00:00 2020 +0000",
			"v1.1.0;;Thu May 7 09:30:00 2020 +0000",
		}, "\n"),
	}}
	f := &fakeRepo{}
	svc := newTestService(t, sh, f, Config{})

	n, err := svc.ImportTags(context.Background(), projdom.Project{ID: 3, Slug: "acme"})
	if err != nil {
		t.Fatalf("ImportTags: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 inserted tags, got %d", n)
	}
	if f.tags[0] != "v1.0.0" || f.tags[1] != "v1.1.0" {
		t.Errorf("tags = %v", f.tags)
	}
}

func TestImportCodeChangesWidensStartToWatermark(t *testing.T) {
	last := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	sh := &scriptRunner{script: map[string]string{
		"rev-list --max-parents=0":    "commit aaa\n2020-01-01T00:00:00Z",
		`--after="2022-03-01 00:00"`:  "2022-04-01T10:00:00Z;~;h9;~;Jane;~;jane@example.com",
		"--name-only -r h9":           "main.py",
		`-r h9 -- 'main.py' | grep -v "^+++ "`: "+a",
		"--format=%B -n 1 h9":         "patch",
	}}
	f := &fakeRepo{last: &last}
	svc := newTestService(t, sh, f, Config{})

	dir := svc.Repos.LocalPath("acme")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// the log listing must be bounded by the ingested watermark, not the
	// later requested start, so the gap commit is picked up
	n, err := svc.ImportCodeChanges(context.Background(), projdom.Project{ID: 7, Slug: "acme"}, &start)
	if err != nil {
		t.Fatalf("ImportCodeChanges: %v", err)
	}
	if n != 1 || len(f.changes) != 1 || f.changes[0].CommitHash != "h9" {
		t.Fatalf("gap commit not imported: n=%d changes=%+v", n, f.changes)
	}
}
