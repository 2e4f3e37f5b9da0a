// Package module wires the pipeline driver over the three stage modules
package module

import (
	"context"

	"commitflow/internal/modkit"
	"commitflow/internal/modkit/httpkit"
	"commitflow/internal/modkit/repokit"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/validate"
	"commitflow/internal/services/pipeline/domain"
	"commitflow/internal/services/pipeline/guardrails"
	"commitflow/internal/services/pipeline/repo"
	"commitflow/internal/services/pipeline/service"
)

// Ports defines the pipeline module ports
type Ports struct {
	Driver domain.DriverPort
	Ledger domain.Ledger
}

// Module implements the pipeline module
type Module struct {
	deps   modkit.Deps
	opts   Options
	driver *service.Driver
	ports  Ports
}

// New constructs the pipeline module. With deps.PG the ledger and the date
// lease live in Postgres; otherwise runs are kept in memory and exclusion is
// process local.
func New(deps modkit.Deps, st service.Stages) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	return NewWith(deps, st, opts)
}

// NewWith constructs the module from explicit options
func NewWith(deps modkit.Deps, st service.Stages, opts Options) (*Module, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	if st.Artifacts == nil && deps.Bucket != nil {
		st.Artifacts = deps.Bucket
	}
	if st.Extract == nil || st.Transform == nil || st.Load == nil || st.Artifacts == nil {
		return nil, perr.InvalidArgf("pipeline: extract, transform, load and an artifact store are required")
	}

	var (
		ledger domain.Ledger
		lease  domain.LeaseFunc
	)
	if deps.HasLedger() {
		ledger = repokit.MustBind(repo.NewPG(), deps.PG)
		lease = guardrails.MakeDateLease(deps.PG, opts.Owner, opts.LeaseTTL)
	} else {
		ledger = repo.NewMemory()
	}

	drv := service.New(st, ledger, service.Config{
		Workers:      opts.Workers,
		MaxRangeDays: opts.MaxRangeDays,
		Timeouts:     opts.Timeouts,
	}, lease)

	return &Module{
		deps:   deps,
		opts:   opts,
		driver: drv,
		ports:  Ports{Driver: drv, Ledger: ledger},
	}, nil
}

// Prepare creates the ledger tables when Postgres is wired
func (m *Module) Prepare(ctx context.Context) error {
	if !m.deps.HasLedger() {
		return nil
	}
	return repo.EnsureSchema(ctx, m.deps.PG)
}

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Driver returns the typed driver port
func (m *Module) Driver() domain.DriverPort { return m.ports.Driver }

// Ledger returns the run history store
func (m *Module) Ledger() domain.Ledger { return m.ports.Ledger }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }
