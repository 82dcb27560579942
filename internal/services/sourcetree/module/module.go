// Package module wires the sourcetree service
package module

import (
	"os"
	"path/filepath"

	"codefrog/internal/modkit"
	"codefrog/internal/modkit/repokit"
	"codefrog/internal/services/sourcetree/domain"
	"codefrog/internal/services/sourcetree/repo"
	"codefrog/internal/services/sourcetree/service"

	"codefrog/internal/adapters/gitcli"
	"codefrog/internal/adapters/shell"
)

// Ports defines the sourcetree module ports
type Ports struct {
	Builder domain.BuilderPort
}

// Module implements the sourcetree module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the sourcetree module
func New(deps modkit.Deps) *Module {
	sh := shell.New()
	repos := gitcli.NewRepoManager(sh,
		deps.Cfg.MayDir("REPO_CACHE_DIR", filepath.Join(os.TempDir(), "codefrog", "repos")),
		deps.Cfg.MayDir("SCRATCH_DIR", filepath.Join(os.TempDir(), "codefrog", "scratch")),
	)
	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), repos, gitcli.NewHistoryReader(sh))
	return &Module{deps: deps, ports: Ports{Builder: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "sourcetree" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
