package gitcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"codefrog/internal/adapters/shell"
)

// ChangeExtractor computes per file complexity deltas for a single commit.
// Complexity is total leading indentation, the sum of whitespace columns
// before the first non space character per line. It is cheap, language
// agnostic, and monotone in nesting depth.
type ChangeExtractor struct {
	sh shell.Runner
}

// NewChangeExtractor returns an extractor driving git through sh
func NewChangeExtractor(sh shell.Runner) ChangeExtractor {
	return ChangeExtractor{sh: sh}
}

// ChangedFiles lists paths touched by hash, retrying with --root for parentless commits
func (e ChangeExtractor) ChangedFiles(ctx context.Context, dir, hash string) []string {
	out := e.sh.Run(ctx, fmt.Sprintf("git diff-tree --no-commit-id --name-only -r %s", hash), dir)
	if strings.TrimSpace(out) == "" {
		out = e.sh.Run(ctx, fmt.Sprintf("git diff-tree --root --no-commit-id --name-only -r %s", hash), dir)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}

// ComplexityChange returns path keyed added and removed indentation sums for hash.
// Paths that no longer exist on disk are skipped. A path present on only
// one side reads as 0 on the other via plain map lookup.
func (e ChangeExtractor) ComplexityChange(ctx context.Context, dir, hash string) (added, removed map[string]int64) {
	added = map[string]int64{}
	removed = map[string]int64{}

	for _, path := range e.ChangedFiles(ctx, dir, hash) {
		if _, err := os.Stat(filepath.Join(dir, path)); err != nil {
			continue
		}

		addedOut := e.sh.Run(ctx, fmt.Sprintf(
			`git diff-tree --no-commit-id -p -r %s -- %s | grep -v "^+++ " | grep "^+"`, hash, shellQuote(path)), dir)
		added[path] = sumIndentation(addedOut)

		removedOut := e.sh.Run(ctx, fmt.Sprintf(
			`git diff-tree --no-commit-id -p -r %s -- %s | grep -v "^--- " | grep "^-"`, hash, shellQuote(path)), dir)
		removed[path] = sumIndentation(removedOut)
	}
	return added, removed
}

// shellQuote wraps a repo controlled path in single quotes. Double quotes
// would still expand $ and backticks inside the file name.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// sumIndentation totals leading whitespace per line after dropping the diff marker
func sumIndentation(out string) int64 {
	var total int64
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		total += LineComplexity(line[1:])
	}
	return total
}

// LineComplexity counts whitespace columns before the first non space rune
func LineComplexity(line string) int64 {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	return int64(len(line) - len(trimmed))
}
