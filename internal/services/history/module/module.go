// Package module wires the history service
package module

import (
	"os"
	"path/filepath"

	"codefrog/internal/modkit"
	"codefrog/internal/modkit/repokit"
	"codefrog/internal/services/history/domain"
	"codefrog/internal/services/history/repo"
	"codefrog/internal/services/history/service"

	"codefrog/internal/adapters/gitcli"
	"codefrog/internal/adapters/shell"
)

// Ports defines the history module ports
type Ports struct {
	Ingester domain.IngesterPort
}

// Module implements the history module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the history module, driving git through a shell runner
// rooted at REPO_CACHE_DIR
func New(deps modkit.Deps) *Module {
	sh := shell.New()
	repos := gitcli.NewRepoManager(sh,
		deps.Cfg.MayDir("REPO_CACHE_DIR", filepath.Join(os.TempDir(), "codefrog", "repos")),
		deps.Cfg.MayDir("SCRATCH_DIR", filepath.Join(os.TempDir(), "codefrog", "scratch")),
	)
	svc := service.New(
		repokit.TxRunner(deps.PG),
		repo.NewPG(),
		repos,
		gitcli.NewHistoryReader(sh),
		gitcli.NewChangeExtractor(sh),
		FromConfig(deps.Cfg),
	)
	return &Module{deps: deps, ports: Ports{Ingester: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "history" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
