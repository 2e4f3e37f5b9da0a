// Package module wires the meta endpoints: liveness, readiness and build info
package module

import (
	"reflect"
	"time"

	"commitflow/internal/core/mapping"
	"commitflow/internal/modkit"
	"commitflow/internal/modkit/httpkit"
	metahttp "commitflow/internal/services/api/meta/http"
)

// Ports are the collaborators other modules hand to meta
type Ports struct {
	Plan *mapping.Plan
}

// Module serves /meta
type Module struct {
	built modkit.Built
	deps  metahttp.Deps
}

// New constructs the meta module; pass Ports via modkit.WithPorts to report the mapping
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	hd := metahttp.Deps{
		Service:   "commitflow",
		StartedAt: time.Now(),
		Dependencies: []metahttp.Dependency{
			{Name: "pg", Pinger: pingerOf(deps.PG)},
			{Name: "ch", Required: true, Pinger: pingerOf(deps.CH)},
			{Name: "bucket", Required: true, Pinger: pingerOf(deps.Bucket)},
		},
	}
	if p, ok := b.Ports.(Ports); ok {
		hd.Plan = p.Plan
	}
	return &Module{built: b, deps: hd}
}

// pingerOf keeps typed nils out of the dependency list
func pingerOf(v any) metahttp.Pinger {
	p, ok := v.(metahttp.Pinger)
	if !ok {
		return nil
	}
	if rv := reflect.ValueOf(p); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return p
}

// MountRoutes mounts /meta
func (m *Module) MountRoutes(r httpkit.Router) {
	m.built.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

// Name returns the module name
func (m *Module) Name() string { return m.built.Name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.built.Prefix }

// Ports returns nothing; meta offers no ports
func (m *Module) Ports() any { return nil }
