package gitcli

import (
	"context"
	"fmt"
	"strings"
	"time"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"

	"codefrog/internal/adapters/shell"
)

// logDelimiter separates pretty format fields, author names may contain semicolons
const logDelimiter = ";~;"

// isoStrict matches git's iso8601-strict-local date output
const isoStrict = "2006-01-02T15:04:05Z07:00"

// gitDefault matches git's default date rendering used by tag format fields
const gitDefault = "Mon Jan 2 15:04:05 2006 -0700"

// Commit is one entry from the history listing
type Commit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Timestamp   time.Time
}

// Tag is one entry from the tag listing
type Tag struct {
	Name      string
	Timestamp time.Time
}

// HistoryReader lists commits and tags from a local clone
type HistoryReader struct {
	sh shell.Runner
}

// NewHistoryReader returns a reader driving git through sh
func NewHistoryReader(sh shell.Runner) HistoryReader {
	return HistoryReader{sh: sh}
}

// FirstCommitDate returns the author date of the repository's root commit
func (h HistoryReader) FirstCommitDate(ctx context.Context, dir string) (time.Time, error) {
	out := h.sh.Run(ctx, `git rev-list --max-parents=0 HEAD --pretty="%ad" --date=iso8601-strict-local`, dir)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return time.Time{}, perr.NotFoundf("repository has no commits")
	}
	ts, err := time.Parse(isoStrict, strings.TrimSpace(lines[1]))
	if err != nil {
		return time.Time{}, perr.Wrapf(err, perr.ErrorCodeInternal, "parse root commit date %q", lines[1])
	}
	return ts, nil
}

// Commits lists history after start in stable oldest first order
func (h HistoryReader) Commits(ctx context.Context, dir string, after time.Time) []Commit {
	cmd := `git log --reverse --date-order --pretty="%ad;~;%H;~;%aN;~;%aE" --date=iso8601-strict-local`
	if !after.IsZero() {
		cmd = fmt.Sprintf(
			`git log --reverse --date-order --after="%s" --pretty="%%ad;~;%%H;~;%%aN;~;%%aE" --date=iso8601-strict-local`,
			after.Format("2006-01-02 15:04"),
		)
	}
	out := h.sh.Run(ctx, cmd, dir)

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, logDelimiter)
		if len(parts) != 4 {
			logger.C(ctx).Warn().Str("line", line).Msg("unparseable log line")
			continue
		}
		ts, err := time.Parse(isoStrict, parts[0])
		if err != nil {
			logger.C(ctx).Warn().Str("date", parts[0]).Msg("unparseable commit date")
			continue
		}
		commits = append(commits, Commit{
			Hash:        parts[1],
			AuthorName:  parts[2],
			AuthorEmail: parts[3],
			Timestamp:   ts,
		})
	}
	return commits
}

// CommitMessage returns the full message body of hash
func (h HistoryReader) CommitMessage(ctx context.Context, dir, hash string) string {
	return strings.TrimSpace(h.sh.Run(ctx, fmt.Sprintf("git log --format=%%B -n 1 %s", hash), dir))
}

// Tags lists all tags with tagger date, falling back to committer date
// for lightweight tags that carry no tagger
func (h HistoryReader) Tags(ctx context.Context, dir string) []Tag {
	out := h.sh.Run(ctx, `git tag --list --format="%(refname:strip=2);%(taggerdate);%(committerdate)"`, dir)

	var tags []Tag
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) != 3 {
			logger.C(ctx).Warn().Str("line", line).Msg("unparseable tag line")
			continue
		}
		raw := parts[1]
		if raw == "" {
			raw = parts[2]
		}
		ts, err := time.Parse(gitDefault, raw)
		if err != nil {
			logger.C(ctx).Warn().Str("date", raw).Str("tag", parts[0]).Msg("unparseable tag date")
			continue
		}
		tags = append(tags, Tag{Name: parts[0], Timestamp: ts})
	}
	return tags
}
