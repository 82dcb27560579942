// Package gitcli drives git as a subprocess and parses its output
package gitcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"

	"codefrog/internal/adapters/shell"
)

// RepoManager maintains a canonical clone per project and hands out
// disposable working copies for analysis
type RepoManager struct {
	sh         shell.Runner
	cacheDir   string
	scratchDir string
}

// NewRepoManager returns a RepoManager rooted at cacheDir with scratch clones under scratchDir
func NewRepoManager(sh shell.Runner, cacheDir, scratchDir string) *RepoManager {
	return &RepoManager{sh: sh, cacheDir: cacheDir, scratchDir: scratchDir}
}

// LocalPath is the canonical clone directory for a project slug
func (m *RepoManager) LocalPath(slug string) string {
	return filepath.Join(m.cacheDir, slug)
}

// InjectToken rewrites an https remote so git authenticates with a short lived token
func InjectToken(remote, token string) string {
	if token == "" {
		return remote
	}
	return strings.Replace(remote, "https://", fmt.Sprintf("https://x-access-token:%s@", token), 1)
}

// EnsureLocal clones the remote on first use and pulls on subsequent runs.
// It returns the clone directory and the current HEAD branch name.
func (m *RepoManager) EnsureLocal(ctx context.Context, remote, slug string) (dir, branch string, err error) {
	dir = m.LocalPath(slug)

	if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
		out := m.sh.Run(ctx, "git pull", dir)
		logger.C(ctx).Debug().Str("slug", slug).Str("out", strings.TrimSpace(out)).Msg("pulled repository")
	} else {
		if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
			return "", "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "create cache dir %s", m.cacheDir)
		}
		m.sh.Run(ctx, fmt.Sprintf("git clone %s %s", remote, dir), m.cacheDir)
	}

	if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr != nil {
		return "", "", perr.Unavailablef("clone of %s did not produce a repository", slug)
	}

	branch = strings.TrimSpace(m.sh.Run(ctx, "git rev-parse --abbrev-ref HEAD", dir))
	if branch == "" {
		return "", "", perr.Unavailablef("could not resolve HEAD branch for %s", slug)
	}
	return dir, branch, nil
}

// ResetHard moves a working copy to the given commit, discarding local state.
// Callers only use it on scratch clones.
func (m *RepoManager) ResetHard(ctx context.Context, dir, commit string) error {
	m.sh.Run(ctx, fmt.Sprintf("git reset --hard %q", commit), dir)
	head := strings.TrimSpace(m.sh.Run(ctx, "git rev-parse HEAD", dir))
	if head == "" || !strings.HasPrefix(head, commit) {
		return perr.Unavailablef("reset to %s failed, HEAD is %q", commit, head)
	}
	return nil
}

// CheckoutScratch clones the canonical copy into a fresh scratch directory.
// The returned cleanup removes the scratch clone and is safe to call on all exit paths.
func (m *RepoManager) CheckoutScratch(ctx context.Context, slug string) (dir string, cleanup func(), err error) {
	local := m.LocalPath(slug)
	if _, statErr := os.Stat(filepath.Join(local, ".git")); statErr != nil {
		return "", nil, perr.NotFoundf("no local repository for %s", slug)
	}

	if err := os.MkdirAll(m.scratchDir, 0o755); err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create scratch dir %s", m.scratchDir)
	}
	tmp, err := os.MkdirTemp(m.scratchDir, slug+"-")
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create scratch clone dir")
	}
	cleanup = func() { _ = os.RemoveAll(tmp) }

	m.sh.Run(ctx, fmt.Sprintf("git clone %s %s", local, tmp), m.scratchDir)
	if _, statErr := os.Stat(filepath.Join(tmp, ".git")); statErr != nil {
		cleanup()
		return "", nil, perr.Unavailablef("scratch clone of %s failed", slug)
	}
	return tmp, cleanup, nil
}
