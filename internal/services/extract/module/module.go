// Package module wires the extract stage: github client, paginator and bronze writer
package module

import (
	"commitflow/internal/adapters/ingest/github"
	"commitflow/internal/core/version"
	"commitflow/internal/modkit"
	"commitflow/internal/platform/day"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/validate"
	"commitflow/internal/services/extract/domain"
	"commitflow/internal/services/extract/service"
)

// Ports defines the extract module ports
type Ports struct {
	Extractor domain.ExtractorPort
	Daily     *service.Daily
}

// Module implements the extract module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the extract module from deps.Cfg. Options are validated up front
// so a missing token or repo fails before any request is made.
func New(deps modkit.Deps) (*Module, error) {
	if deps.Bucket == nil {
		return nil, perr.InvalidArgf("extract: object store bucket is required")
	}
	opts := FromConfig(deps.Cfg)
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	return NewWith(deps, opts), nil
}

// NewWith constructs the module from explicit options
func NewWith(deps modkit.Deps, opts Options) *Module {
	client := github.NewClient(github.Options{
		BaseURL:   opts.APIURL,
		Token:     opts.Token,
		UserAgent: version.UserAgent(),
		Timeout:   opts.Timeout,
		RPS:       opts.RPS,
	})
	pag := service.NewPaginator(client, service.Config{
		PerPage:    opts.BatchSize,
		MaxRetries: opts.MaxRetries,
		RetryBase:  opts.RetryBase,
		MaxWait:    opts.MaxWait,
	})
	svc := service.New(pag, service.NewSnapshotWriter(deps.Bucket, opts.BronzePrefix))

	return &Module{deps: deps, opts: opts, ports: Ports{Extractor: svc, Daily: svc.ForRepo(opts.Repo, opts.Ref)}}
}

// Window returns the configured repo/ref window covering d
func (m *Module) Window(d day.Date) domain.Window {
	return domain.WindowFor(m.opts.Repo, m.opts.Ref, d)
}

// Name returns the module name
func (m *Module) Name() string { return "extract" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Extractor returns the typed extractor port
func (m *Module) Extractor() domain.ExtractorPort { return m.ports.Extractor }

// Daily returns the extractor bound to the configured repo and ref
func (m *Module) Daily() *service.Daily { return m.ports.Daily }
