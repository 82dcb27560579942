package domain

import "testing"

func TestStatusTransitions(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusReady, StatusQueued},
		{StatusQueued, StatusUpdating},
		{StatusQueued, StatusReady},
		{StatusUpdating, StatusReady},
	}
	for _, c := range legal {
		if !c.from.CanTransition(c.to) {
			t.Errorf("%s -> %s must be legal", c.from, c.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusReady, StatusUpdating},
		{StatusReady, StatusReady},
		{StatusUpdating, StatusQueued},
		{StatusQueued, StatusQueued},
	}
	for _, c := range illegal {
		if c.from.CanTransition(c.to) {
			t.Errorf("%s -> %s must be illegal", c.from, c.to)
		}
	}
}

func TestEffectiveBugLabels(t *testing.T) {
	var p Project
	got := p.EffectiveBugLabels()
	if len(got) == 0 {
		t.Fatal("fallback set must not be empty")
	}
	found := false
	for _, l := range got {
		if l == "bug" {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback must contain bug: %v", got)
	}

	p.BugLabels = []string{"defect"}
	if got := p.EffectiveBugLabels(); len(got) != 1 || got[0] != "defect" {
		t.Fatalf("configured labels must win: %v", got)
	}
}

func TestOwnerName(t *testing.T) {
	p := Project{GitURL: "https://github.com/acme/widget.git"}
	owner, name := p.OwnerName()
	if owner != "acme" || name != "widget" {
		t.Fatalf("got %q/%q", owner, name)
	}

	p = Project{GitURL: "nonsense"}
	if owner, _ := p.OwnerName(); owner != "" {
		t.Fatalf("unparseable url must yield empty owner, got %q", owner)
	}
}

func TestRepoLink(t *testing.T) {
	p := Project{GitURL: "https://github.com/acme/widget.git", DefaultBranch: "main"}
	if got := p.RepoLink("src/app.py"); got != "https://github.com/acme/widget/blob/main/src/app.py" {
		t.Fatalf("got %q", got)
	}

	p.DefaultBranch = ""
	if got := p.RepoLink("/x"); got != "https://github.com/acme/widget/blob/master/x" {
		t.Fatalf("branch fallback: %q", got)
	}
}
