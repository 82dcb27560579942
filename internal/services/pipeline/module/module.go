// Package module wires the pipeline orchestrator and its worker
package module

import (
	"context"
	"os"
	"path/filepath"

	"codefrog/internal/modkit"
	"codefrog/internal/modkit/repokit"
	histdom "codefrog/internal/services/history/domain"
	metdom "codefrog/internal/services/metrics/domain"
	"codefrog/internal/services/pipeline/domain"
	"codefrog/internal/services/pipeline/repo"
	"codefrog/internal/services/pipeline/service"
	projdom "codefrog/internal/services/projects/domain"
	treedom "codefrog/internal/services/sourcetree/domain"
	trackdom "codefrog/internal/services/tracker/domain"

	"codefrog/internal/adapters/gitcli"
	"codefrog/internal/adapters/github"
	"codefrog/internal/adapters/shell"
)

// Wiring carries the ports of the modules the pipeline drives.
// The composition root fills it from the module registry.
type Wiring struct {
	Projects projdom.ReaderPort
	Writer   projdom.WriterPort
	History  histdom.IngesterPort
	Tracker  trackdom.IngesterPort
	Metrics  metdom.AggregatorPort
	Trees    treedom.BuilderPort
}

// Ports defines the pipeline module ports
type Ports struct {
	Orchestrator domain.OrchestratorPort
}

// Module implements the pipeline module
type Module struct {
	deps   modkit.Deps
	ports  Ports
	worker *service.Worker
}

// New constructs the pipeline module. Callers pass the cross module
// wiring with modkit.WithPorts(Wiring{...}).
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	built := modkit.Build(opts...)
	wiring, ok := built.Ports.(Wiring)
	if !ok {
		panic("pipeline module requires modkit.WithPorts(module.Wiring{...})")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), wiring.Writer, FromConfig(deps.Cfg))

	sh := shell.New()
	repos := gitcli.NewRepoManager(sh,
		deps.Cfg.MayDir("REPO_CACHE_DIR", filepath.Join(os.TempDir(), "codefrog", "repos")),
		deps.Cfg.MayDir("SCRATCH_DIR", filepath.Join(os.TempDir(), "codefrog", "scratch")),
	)

	handlers := service.Handlers(service.StageDeps{
		Repos:    repos,
		Projects: wiring.Projects,
		Writer:   wiring.Writer,
		History:  wiring.History,
		Tracker:  wiring.Tracker,
		Metrics:  wiring.Metrics,
		Trees:    wiring.Trees,
		TokenFor: cloneTokens(deps),
	})
	worker := service.NewWorker(svc, handlers, WorkerFromConfig(deps.Cfg))

	return &Module{deps: deps, ports: Ports{Orchestrator: svc}, worker: worker}
}

// cloneTokens exchanges app credentials for installation tokens used on
// private clone URLs. Without app credentials private projects fall back
// to whatever the remote accepts anonymously.
func cloneTokens(deps modkit.Deps) func(ctx context.Context, project projdom.Project) (string, error) {
	appID := deps.Cfg.MayString("PROVIDER_APP_ID", "")
	if appID == "" {
		return nil
	}
	client := github.NewClient(github.Options{
		BaseURL: deps.Cfg.MayString("PROVIDER_BASE_URL", ""),
	})
	tokens := github.NewTokenSource(client, appID, deps.Cfg.MustPEM("PROVIDER_PRIVATE_KEY"))
	return func(ctx context.Context, project projdom.Project) (string, error) {
		if project.InstallationID == 0 {
			return "", nil
		}
		return tokens.Token(ctx, project.InstallationID)
	}
}

// Worker returns the claim loop for the worker binary to run
func (m *Module) Worker() *service.Worker { return m.worker }

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
