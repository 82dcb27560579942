// Package module wires the projects service
package module

import (
	"codefrog/internal/modkit"
	"codefrog/internal/modkit/repokit"
	"codefrog/internal/services/projects/domain"
	"codefrog/internal/services/projects/repo"
	"codefrog/internal/services/projects/service"
)

// Ports defines the projects module ports
type Ports struct {
	Reader domain.ReaderPort
	Writer domain.WriterPort
}

// Module implements the projects module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the projects module
func New(deps modkit.Deps) *Module {
	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG())
	return &Module{
		deps:  deps,
		ports: Ports{Reader: svc, Writer: svc},
	}
}

// Name returns the module name
func (m *Module) Name() string { return "projects" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
