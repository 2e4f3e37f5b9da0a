// Package api mounts the ops HTTP API: health, run history and manual triggers
package api

import (
	"context"

	"commitflow/internal/core/mapping"
	"commitflow/internal/modkit"
	"commitflow/internal/modkit/httpkit"
	"commitflow/internal/modkit/module"
	"commitflow/internal/modkit/swaggerkit"
	phttp "commitflow/internal/platform/net/http"
	"commitflow/internal/platform/net/middleware"

	metamod "commitflow/internal/services/api/meta/module"
	runsmod "commitflow/internal/services/api/runs/module"
	pipedom "commitflow/internal/services/pipeline/domain"
	pipemod "commitflow/internal/services/pipeline/module"
)

// Options are the API options
type Options struct {
	Deps           modkit.Deps
	Pipeline       *pipemod.Module
	Plan           *mapping.Plan
	EnableSwagger  bool
	EnableProfiler bool
}

// Mounted is what the caller needs after the routes are in place
type Mounted struct {
	runs *runsmod.Module
}

// Wait blocks until runs queued through the API have returned
func (m Mounted) Wait() { m.runs.Wait() }

// Mount mounts the API onto r, which must have no routes yet. Runs queued
// through it are bound to ctx.
func Mount(ctx context.Context, r phttp.Router, opt Options) (Mounted, error) {
	runs, err := runsmod.New(ctx, opt.Deps, modkit.WithPorts(runsmod.Ports{
		Driver: module.MustPortsOf[pipedom.DriverPort](opt.Pipeline),
		Ledger: module.MustPortsOf[pipedom.Ledger](opt.Pipeline),
	}))
	if err != nil {
		return Mounted{}, err
	}

	mods := []module.Module{
		metamod.New(opt.Deps, modkit.WithPorts(metamod.Ports{Plan: opt.Plan})),
		runs,
		opt.Pipeline, // routeless; registered for its ports
	}

	r.Use(middleware.Heartbeat("/healthz"))
	httpkit.MountAPIV1(r, httpkit.CommonStack(httpkit.StackFromConfig(opt.Deps.Cfg)), func(api httpkit.Router) {
		swaggerkit.Mount(r, httpkit.APIV1Prefix, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
	return Mounted{runs: runs}, nil
}
