// Package shell runs trusted commands through a shell and tolerates non-zero exits
package shell

import (
	"context"
	"os/exec"

	"codefrog/internal/platform/logger"
)

// Runner executes a command line through the shell with an optional working directory
// Non-zero exits are not failures, callers get whatever output was produced
type Runner interface {
	Run(ctx context.Context, cmd string, cwd string) string
}

// New returns the default shell backed Runner
func New() Runner { return runner{} }

type runner struct{}

// Run executes cmd via sh -c inside cwd and returns combined output.
// Several git invocations exit non-zero on legitimately empty results
// (grep with no match, log with no commits in range), so a non-zero
// exit only logs a warning and still returns the captured output.
func (runner) Run(ctx context.Context, cmd string, cwd string) string {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = cwd

	out, err := c.CombinedOutput()
	if err != nil {
		logger.C(ctx).Warn().
			Str("cmd", cmd).
			Str("cwd", cwd).
			Err(err).
			Msg("shell command exited non-zero")
	}
	return string(out)
}
