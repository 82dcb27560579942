// Package service ingests git history into code change rows
package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"codefrog/internal/modkit/repokit"
	"codefrog/internal/platform/logger"
	"codefrog/internal/services/history/domain"
	projdom "codefrog/internal/services/projects/domain"

	"codefrog/internal/adapters/gitcli"
)

// Config tunes the import fan out
type Config struct {
	// ChunkSize is the number of commits handed to one worker at a time
	ChunkSize int
	// Workers bounds how many chunks are processed concurrently
	Workers int
}

const (
	defaultChunkSize = 100
	defaultWorkers   = 4
)

// Service implements domain.IngesterPort
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo]
	History gitcli.HistoryReader
	Extract gitcli.ChangeExtractor
	Repos   *gitcli.RepoManager
	Cfg     Config
}

// New constructs the history service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	repos *gitcli.RepoManager,
	history gitcli.HistoryReader,
	extract gitcli.ChangeExtractor,
	cfg Config,
) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Service{DB: db, Binder: binder, Repos: repos, History: history, Extract: extract, Cfg: cfg}
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

// EffectiveStart clamps a requested start to the repository's first commit.
// A nil request means full history.
func EffectiveStart(requested *time.Time, firstCommit time.Time) time.Time {
	if requested != nil && requested.After(firstCommit) {
		return *requested
	}
	return firstCommit
}

// ImportCodeChanges walks commits after start and upserts one row per
// touched file. Replayed commits are no-ops on the unique key, so the
// ingest is safe to rerun over an overlapping window. Returns the number
// of rows actually inserted.
func (s *Service) ImportCodeChanges(ctx context.Context, project projdom.Project, start *time.Time) (int, error) {
	dir := s.Repos.LocalPath(project.Slug)

	// never skip past commits not ingested yet: a project that missed
	// update runs widens the bound back to its newest imported commit
	if start != nil {
		last, err := s.repo().LastChangeTimestamp(ctx, project.ID)
		if err != nil {
			return 0, err
		}
		if last != nil && last.Before(*start) {
			start = last
		}
	}

	first, err := s.History.FirstCommitDate(ctx, dir)
	if err != nil {
		return 0, err
	}
	after := EffectiveStart(start, first)

	commits := s.History.Commits(ctx, dir, after)
	logger.C(ctx).Info().
		Int64("project_id", project.ID).
		Int("commits", len(commits)).
		Time("after", after).
		Msg("importing code changes")
	if len(commits) == 0 {
		return 0, nil
	}

	var (
		inserted atomic.Int64
		wg       sync.WaitGroup
		sem      = make(chan struct{}, s.Cfg.Workers)
		errOnce  sync.Once
		firstErr error
	)
	for _, chunk := range chunks(commits, s.Cfg.ChunkSize) {
		wg.Add(1)
		sem <- struct{}{}
		go func(chunk []gitcli.Commit) {
			defer wg.Done()
			defer func() { <-sem }()
			n, err := s.importChunk(ctx, project, dir, chunk)
			inserted.Add(int64(n))
			if err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(chunk)
	}
	wg.Wait()

	return int(inserted.Load()), firstErr
}

func (s *Service) importChunk(ctx context.Context, project projdom.Project, dir string, chunk []gitcli.Commit) (int, error) {
	repo := s.repo()
	inserted := 0
	for _, c := range chunk {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		added, removed := s.Extract.ComplexityChange(ctx, dir, c.Hash)
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		msg := s.History.CommitMessage(ctx, dir, c.Hash)

		for _, path := range unionPaths(added, removed) {
			ok, err := repo.UpsertChange(ctx, domain.CodeChange{
				ProjectID:         project.ID,
				CommitHash:        c.Hash,
				Timestamp:         c.Timestamp,
				AuthorName:        c.AuthorName,
				AuthorEmail:       c.AuthorEmail,
				FilePath:          path,
				ComplexityAdded:   added[path],
				ComplexityRemoved: removed[path],
				Description:       msg,
			})
			if err != nil {
				return inserted, err
			}
			if ok {
				inserted++
			}
		}
	}
	return inserted, nil
}

// ImportTags records every git tag as a release row. Returns the number
// of newly inserted releases.
func (s *Service) ImportTags(ctx context.Context, project projdom.Project) (int, error) {
	dir := s.Repos.LocalPath(project.Slug)
	repo := s.repo()

	inserted := 0
	for _, tag := range s.History.Tags(ctx, dir) {
		ok, err := repo.UpsertGitTag(ctx, project.ID, tag.Name, tag.Timestamp)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	logger.C(ctx).Info().Int64("project_id", project.ID).Int("inserted", inserted).Msg("imported git tags")
	return inserted, nil
}

func chunks(commits []gitcli.Commit, size int) [][]gitcli.Commit {
	var out [][]gitcli.Commit
	for start := 0; start < len(commits); start += size {
		end := start + size
		if end > len(commits) {
			end = len(commits)
		}
		out = append(out, commits[start:end])
	}
	return out
}

func unionPaths(added, removed map[string]int64) []string {
	seen := make(map[string]struct{}, len(added)+len(removed))
	for p := range added {
		seen[p] = struct{}{}
	}
	for p := range removed {
		seen[p] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
