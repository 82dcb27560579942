// Package service materializes annotated snapshots of the working tree
package service

import (
	"context"
	"time"

	"codefrog/internal/modkit/repokit"
	"codefrog/internal/platform/logger"
	projdom "codefrog/internal/services/projects/domain"
	"codefrog/internal/services/sourcetree/domain"

	"codefrog/internal/adapters/gitcli"
)

// changeCountWindow bounds the recency window for per file change counts
const changeCountWindow = 30 * 24 * time.Hour

// Service implements domain.BuilderPort
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo]
	Repos   *gitcli.RepoManager
	History gitcli.HistoryReader
	now     func() time.Time
}

// New constructs the sourcetree service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], repos *gitcli.RepoManager, history gitcli.HistoryReader) *Service {
	return &Service{DB: db, Binder: binder, Repos: repos, History: history, now: time.Now}
}

// Build checks out a disposable working copy, walks it into a tree, enriches
// file nodes with ownership and change counts, and writes the whole snapshot
// plus the active flip in one transaction.
func (s *Service) Build(ctx context.Context, project projdom.Project) (int64, error) {
	scratch, cleanup, err := s.Repos.CheckoutScratch(ctx, project.Slug)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	root, err := walkTree(scratch)
	if err != nil {
		return 0, err
	}
	nodes := flatten(root)

	counts, err := s.Binder.Bind(s.DB).ChangeCounts(ctx, project.ID, s.now().Add(-changeCountWindow))
	if err != nil {
		return 0, err
	}

	// shell calls stay outside the write transaction
	ownership := make(map[string][]domain.Owner, len(nodes))
	for _, n := range nodes {
		if n.kind != domain.KindFile {
			continue
		}
		ownership[n.path] = convertOwners(s.History.Ownership(ctx, scratch, n.path))
	}

	var snapshotID int64
	err = repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)

		snapshotID, err = repo.CreateSnapshot(ctx, project.ID)
		if err != nil {
			return err
		}

		ids := map[*treeNode]int64{}
		for _, n := range nodes {
			node := domain.Node{
				SnapshotID: snapshotID,
				Name:       n.name,
				Path:       n.path,
				Kind:       n.kind,
				Complexity: n.complexity,
				Lft:        n.lft,
				Rgt:        n.rgt,
			}
			if n.parent != nil {
				id := ids[n.parent]
				node.ParentID = &id
			}
			if n.kind == domain.KindFile {
				node.ChangeCount = changeCount(counts, n.path)
				node.Ownership = ownership[n.path]
				node.RepoLink = project.RepoLink(n.path)
			}

			id, err := repo.InsertNode(ctx, node)
			if err != nil {
				return err
			}
			ids[n] = id
		}

		return repo.ActivateSnapshot(ctx, project.ID, snapshotID)
	})
	if err != nil {
		return 0, err
	}

	logger.C(ctx).Info().
		Int64("project_id", project.ID).
		Int64("snapshot_id", snapshotID).
		Int("nodes", len(nodes)).
		Msg("activated source tree snapshot")
	return snapshotID, nil
}

// ActiveNodes implements domain.BuilderPort
func (s *Service) ActiveNodes(ctx context.Context, projectID int64) ([]domain.Node, error) {
	return s.Binder.Bind(s.DB).ActiveNodes(ctx, projectID)
}

// ComplexityAt resets a scratch clone to the given commit and sums the
// complexity of every file in the tree
func (s *Service) ComplexityAt(ctx context.Context, project projdom.Project, commit string) (int64, error) {
	scratch, cleanup, err := s.Repos.CheckoutScratch(ctx, project.Slug)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	if err := s.Repos.ResetHard(ctx, scratch, commit); err != nil {
		return 0, err
	}
	root, err := walkTree(scratch)
	if err != nil {
		return 0, err
	}
	return root.complexity, nil
}

// changeCount keeps weights strictly positive so untouched files still
// carry a minimal weight in downstream scoring
func changeCount(counts map[string]int64, path string) int64 {
	if c := counts[path]; c > 0 {
		return c
	}
	return 1
}

func convertOwners(owners []gitcli.Owner) []domain.Owner {
	out := make([]domain.Owner, 0, len(owners))
	for _, o := range owners {
		out = append(out, domain.Owner{Author: o.Author, Commits: int(o.Commits), Percent: o.Percent})
	}
	return out
}
