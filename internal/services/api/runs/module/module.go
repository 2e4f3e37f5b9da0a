// Package module wires run history and manual triggers into the API using modkit
package module

import (
	"context"

	"commitflow/internal/modkit"
	"commitflow/internal/modkit/httpkit"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/net/middleware"
	"commitflow/internal/platform/validate"
	runshttp "commitflow/internal/services/api/runs/http"
	runssvc "commitflow/internal/services/api/runs/service"
	pipedom "commitflow/internal/services/pipeline/domain"
)

// Ports are what the runs module consumes from the pipeline module
type Ports struct {
	Driver pipedom.DriverPort
	Ledger pipedom.Ledger
}

// Module serves /pipeline
type Module struct {
	built modkit.Built
	auth  middleware.AuthPort
	svc   *runssvc.Svc
}

// New constructs the runs module. Ports must arrive via modkit.WithPorts.
// Queued runs are bound to ctx.
func New(ctx context.Context, deps modkit.Deps, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("runs"), modkit.WithPrefix("/pipeline")}, opts...)...)

	p, ok := b.Ports.(Ports)
	if !ok || p.Driver == nil || p.Ledger == nil {
		return nil, perr.InvalidArgf("runs: pipeline driver and ledger ports are required")
	}
	o := FromConfig(deps.Cfg)
	if err := validate.Struct(o); err != nil {
		return nil, err
	}
	return &Module{built: b, auth: o.authPort(), svc: runssvc.New(ctx, p.Driver, p.Ledger)}, nil
}

// MountRoutes mounts /pipeline
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) { runshttp.Register(rr, m.svc, m.auth) })
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.built.Prefix }

// Ports returns the runs service port
func (m *Module) Ports() any { return m.svc }

// Wait blocks until runs queued through the API have returned
func (m *Module) Wait() { m.svc.Wait() }
