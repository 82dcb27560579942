// Package module wires the webhook receiver
package module

import (
	"context"

	"codefrog/internal/modkit"
	pipedom "codefrog/internal/services/pipeline/domain"
	projdom "codefrog/internal/services/projects/domain"
	treedom "codefrog/internal/services/sourcetree/domain"
	"codefrog/internal/services/webhook/domain"
	"codefrog/internal/services/webhook/service"

	"codefrog/internal/adapters/github"

	"github.com/go-chi/chi/v5"
)

// Wiring carries the ports of the modules webhook handlers drive
type Wiring struct {
	Projects projdom.ReaderPort
	Writer   projdom.WriterPort
	Pipeline pipedom.OrchestratorPort
	Trees    treedom.BuilderPort
}

// Ports defines the webhook module ports
type Ports struct {
	Receiver domain.ReceiverPort
}

// Module implements the webhook module
type Module struct {
	deps   modkit.Deps
	ports  Ports
	secret []byte
	svc    *service.Service
}

// New constructs the webhook module. Callers pass the cross module wiring
// with modkit.WithPorts(Wiring{...}).
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	built := modkit.Build(opts...)
	wiring, ok := built.Ports.(Wiring)
	if !ok {
		panic("webhook module requires modkit.WithPorts(module.Wiring{...})")
	}

	svc := service.New(
		wiring.Projects,
		wiring.Writer,
		wiring.Pipeline,
		wiring.Trees,
		repoFetcher(deps),
	)
	return &Module{
		deps:   deps,
		ports:  Ports{Receiver: svc},
		secret: []byte(deps.Cfg.MustString("PROVIDER_WEBHOOK_SECRET")),
		svc:    svc,
	}
}

// repoFetcher resolves repository metadata with an installation token
func repoFetcher(deps modkit.Deps) service.RepoFetcher {
	client := github.NewClient(github.Options{
		BaseURL: deps.Cfg.MayString("PROVIDER_BASE_URL", ""),
	})
	tokens := github.NewTokenSource(client,
		deps.Cfg.MustString("PROVIDER_APP_ID"),
		deps.Cfg.MustPEM("PROVIDER_PRIVATE_KEY"),
	)
	return func(ctx context.Context, installationID int64, owner, name string) (github.Repo, error) {
		token, err := tokens.Token(ctx, installationID)
		if err != nil {
			return github.Repo{}, err
		}
		return client.RepoByFullName(ctx, github.TokenAuth(token), owner, name)
	}
}

// Routes mounts the receiver endpoints on the given mux
func (m *Module) Routes() func(*chi.Mux) {
	return service.Routes(m.secret, m.ports.Receiver)
}

// Name returns the module name
func (m *Module) Name() string { return "webhook" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
