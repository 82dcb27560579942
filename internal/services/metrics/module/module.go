// Package module wires the metrics service
package module

import (
	"codefrog/internal/modkit"
	"codefrog/internal/modkit/repokit"
	"codefrog/internal/services/metrics/domain"
	"codefrog/internal/services/metrics/repo"
	"codefrog/internal/services/metrics/service"
)

// Ports defines the metrics module ports
type Ports struct {
	Aggregator domain.AggregatorPort
}

// Module implements the metrics module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the metrics module
func New(deps modkit.Deps) *Module {
	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG())
	return &Module{deps: deps, ports: Ports{Aggregator: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "metrics" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
