// Package module wires the tracker service
package module

import (
	"context"

	"codefrog/internal/modkit"
	"codefrog/internal/modkit/repokit"
	projdom "codefrog/internal/services/projects/domain"
	"codefrog/internal/services/tracker/domain"
	"codefrog/internal/services/tracker/repo"
	"codefrog/internal/services/tracker/service"

	"codefrog/internal/adapters/github"
)

// Ports defines the tracker module ports
type Ports struct {
	Ingester domain.IngesterPort
}

// Module implements the tracker module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the tracker module. Credentials resolve per project:
// app installations exchange a JWT for an installation token, otherwise
// a static PROVIDER_TOKEN is used when configured.
func New(deps modkit.Deps) *Module {
	client := github.NewClient(github.Options{
		BaseURL: deps.Cfg.MayString("PROVIDER_BASE_URL", ""),
	})
	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), client, authResolver(deps, client))
	return &Module{deps: deps, ports: Ports{Ingester: svc}}
}

func authResolver(deps modkit.Deps, client *github.Client) service.AuthFunc {
	appID := deps.Cfg.MayString("PROVIDER_APP_ID", "")
	staticToken := deps.Cfg.MayString("PROVIDER_TOKEN", "")

	var tokens *github.TokenSource
	if appID != "" {
		tokens = github.NewTokenSource(client, appID, deps.Cfg.MustPEM("PROVIDER_PRIVATE_KEY"))
	}

	return func(ctx context.Context, project projdom.Project) (github.Auth, error) {
		if tokens != nil && project.InstallationID != 0 {
			tok, err := tokens.Token(ctx, project.InstallationID)
			if err != nil {
				return github.Auth{}, err
			}
			return github.TokenAuth(tok), nil
		}
		if staticToken != "" {
			return github.TokenAuth(staticToken), nil
		}
		return github.Auth{}, nil
	}
}

// Name returns the module name
func (m *Module) Name() string { return "tracker" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
