package service

import (
	"context"
	"testing"
	"time"

	"codefrog/internal/modkit/repokit"
	projdom "codefrog/internal/services/projects/domain"
	"codefrog/internal/services/tracker/domain"

	"codefrog/internal/adapters/github"
)

type fakeProvider struct {
	issues   []github.Issue
	pulls    []github.Pull
	releases []github.Release
	since    *time.Time
	owner    string
	name     string
}

func (f *fakeProvider) Issues(_ context.Context, _ github.Auth, owner, name string, since *time.Time, fn func(github.Issue) error) error {
	f.owner, f.name, f.since = owner, name, since
	for _, it := range f.issues {
		if err := fn(it); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeProvider) Pulls(_ context.Context, _ github.Auth, owner, name string, fn func(github.Pull) error) error {
	f.owner, f.name = owner, name
	for _, it := range f.pulls {
		if err := fn(it); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeProvider) Releases(_ context.Context, _ github.Auth, owner, name string, fn func(github.Release) error) error {
	for _, it := range f.releases {
		if err := fn(it); err != nil {
			return err
		}
	}
	return nil
}

type fakeRepo struct {
	issues   []domain.Issue
	pulls    []domain.Pull
	releases []domain.Release
	last     *time.Time
}

func (f *fakeRepo) UpsertIssue(_ context.Context, is domain.Issue) (bool, error) {
	f.issues = append(f.issues, is)
	return true, nil
}

func (f *fakeRepo) UpsertPull(_ context.Context, pr domain.Pull) (bool, error) {
	f.pulls = append(f.pulls, pr)
	return true, nil
}

func (f *fakeRepo) UpsertRelease(_ context.Context, rel domain.Release) (bool, error) {
	f.releases = append(f.releases, rel)
	return true, nil
}

func (f *fakeRepo) LastIssueOpenedAt(context.Context, int64) (*time.Time, error) {
	return f.last, nil
}

func noAuth(context.Context, projdom.Project) (github.Auth, error) {
	return github.Auth{}, nil
}

func newTestService(p Provider, f *fakeRepo) *Service {
	binder := repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return f })
	return New(nil, binder, p, noAuth)
}

var testProject = projdom.Project{
	ID:     5,
	Slug:   "acme-api",
	GitURL: "https://github.com/acme/api.git",
}

func TestImportIssuesSkipsPulls(t *testing.T) {
	opened := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := opened.Add(48 * time.Hour)
	p := &fakeProvider{issues: []github.Issue{
		{Number: 1, CreatedAt: opened, ClosedAt: &closed, Labels: []github.Label{{Name: "bug"}}},
		{Number: 2, CreatedAt: opened, PullRequest: []byte(`{"url":"x"}`)},
		{Number: 3, CreatedAt: opened},
	}}
	f := &fakeRepo{}

	n, err := newTestService(p, f).ImportIssues(context.Background(), testProject, nil)
	if err != nil {
		t.Fatalf("ImportIssues: %v", err)
	}
	if n != 2 || len(f.issues) != 2 {
		t.Fatalf("want 2 issues, got %d/%d", n, len(f.issues))
	}
	if p.owner != "acme" || p.name != "api" {
		t.Errorf("owner/name = %s/%s", p.owner, p.name)
	}
	is := f.issues[0]
	if is.ProjectID != 5 || is.RefID != 1 || is.ClosedAt == nil || len(is.Labels) != 1 {
		t.Errorf("unexpected issue: %+v", is)
	}
	if is.Category != domain.CategoryBug {
		t.Errorf("labelled issue category = %q, want bug", is.Category)
	}
	if got := f.issues[1].Category; got != domain.CategoryChange {
		t.Errorf("unlabelled issue category = %q, want change", got)
	}
}

func TestImportIssuesCategorizesWithProjectLabels(t *testing.T) {
	opened := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{issues: []github.Issue{
		{Number: 1, CreatedAt: opened, Labels: []github.Label{{Name: "critical-defect"}}},
		{Number: 2, CreatedAt: opened, Labels: []github.Label{{Name: "bug"}}},
	}}
	f := &fakeRepo{}
	project := testProject
	project.BugLabels = []string{"defect"}

	if _, err := newTestService(p, f).ImportIssues(context.Background(), project, nil); err != nil {
		t.Fatal(err)
	}
	// substring match against the configured set; the default set no
	// longer applies, so a plain "bug" label is a change here
	if got := f.issues[0].Category; got != domain.CategoryBug {
		t.Errorf("issue 1 category = %q, want bug", got)
	}
	if got := f.issues[1].Category; got != domain.CategoryChange {
		t.Errorf("issue 2 category = %q, want change", got)
	}
}

func TestImportIssuesPassesSince(t *testing.T) {
	since := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{}

	if _, err := newTestService(p, &fakeRepo{}).ImportIssues(context.Background(), testProject, &since); err != nil {
		t.Fatal(err)
	}
	if p.since == nil || !p.since.Equal(since) {
		t.Errorf("since = %v, want %v", p.since, since)
	}
}

func TestImportIssuesWidensSinceToWatermark(t *testing.T) {
	last := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	since := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{}

	if _, err := newTestService(p, &fakeRepo{last: &last}).ImportIssues(context.Background(), testProject, &since); err != nil {
		t.Fatal(err)
	}
	// a stale project fetches from its newest ingested issue, not the
	// requested bound, so the gap between runs is not lost
	if p.since == nil || !p.since.Equal(last) {
		t.Errorf("since = %v, want watermark %v", p.since, last)
	}
}

func TestImportPulls(t *testing.T) {
	opened := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	merged := opened.Add(24 * time.Hour)
	p := &fakeProvider{pulls: []github.Pull{
		{Number: 10, CreatedAt: opened, MergedAt: &merged},
		{Number: 11, CreatedAt: opened}, // closed without merge
	}}
	f := &fakeRepo{}

	n, err := newTestService(p, f).ImportPulls(context.Background(), testProject)
	if err != nil {
		t.Fatalf("ImportPulls: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 pulls, got %d", n)
	}
	if f.pulls[0].MergedAt == nil || f.pulls[1].MergedAt != nil {
		t.Error("merged_at not carried through")
	}
}

func TestImportReleasesSkipsDraftsAndNamesByTag(t *testing.T) {
	at := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{releases: []github.Release{
		{TagName: "v2.0.0", Name: "Big release", PublishedAt: at, HTMLURL: "https://example.com/r/1"},
		{TagName: "v2.1.0", PublishedAt: at},
		{TagName: "v3.0.0-draft", Draft: true, PublishedAt: at},
	}}
	f := &fakeRepo{}

	n, err := newTestService(p, f).ImportReleases(context.Background(), testProject)
	if err != nil {
		t.Fatalf("ImportReleases: %v", err)
	}
	if n != 2 || len(f.releases) != 2 {
		t.Fatalf("want 2 releases, got %d", n)
	}
	if f.releases[0].Name != "v2.0.0" || f.releases[1].Name != "v2.1.0" {
		t.Errorf("names = %q, %q", f.releases[0].Name, f.releases[1].Name)
	}
	if f.releases[0].Kind != domain.KindProvider {
		t.Errorf("kind = %q", f.releases[0].Kind)
	}
}

func TestIssueOpenAt(t *testing.T) {
	opened := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := opened.Add(72 * time.Hour)
	is := domain.Issue{OpenedAt: opened, ClosedAt: &closed}

	if is.Open(opened.Add(-time.Hour)) {
		t.Error("open before creation")
	}
	if !is.Open(opened.Add(time.Hour)) {
		t.Error("closed while within lifetime")
	}
	if is.Open(closed.Add(time.Hour)) {
		t.Error("open after close")
	}
	if !(domain.Issue{OpenedAt: opened}).Open(closed) {
		t.Error("never closed issue should stay open")
	}
}
