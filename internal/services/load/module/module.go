// Package module wires the load stage onto ClickHouse
package module

import (
	"commitflow/internal/modkit"
	"commitflow/internal/platform/config"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/validate"
	"commitflow/internal/services/load/domain"
	"commitflow/internal/services/load/repo"
	"commitflow/internal/services/load/service"
)

// Options holds configuration for the load module
type Options struct {
	Database      string `env:"CORE_WAREHOUSE_DATABASE" validate:"required,ch_ident"`
	Table         string `env:"CORE_WAREHOUSE_TABLE" validate:"required,ch_ident"`
	StagingPrefix string `env:"CORE_STORAGE_STAGING_PREFIX" validate:"required"`
}

// FromConfig reads CORE_WAREHOUSE_* and the staging prefix
func FromConfig(cfg config.Conf) Options {
	wh := cfg.Prefix("CORE_WAREHOUSE_")
	return Options{
		Database:      wh.MayString("DATABASE", "analytics"),
		Table:         wh.MayString("TABLE", "github_commits"),
		StagingPrefix: cfg.Prefix("CORE_STORAGE_").MayString("STAGING_PREFIX", "staging/commits"),
	}
}

// Ports defines the load module ports
type Ports struct {
	Loader    domain.LoaderPort
	Warehouse domain.Warehouse
}

// Module implements the load module
type Module struct {
	ports Ports
}

// New constructs the load module over deps.CH and deps.Bucket
func New(deps modkit.Deps) (*Module, error) {
	if deps.CH == nil {
		return nil, perr.InvalidArgf("load: clickhouse is required")
	}
	if deps.Bucket == nil {
		return nil, perr.InvalidArgf("load: object store bucket is required")
	}
	opts := FromConfig(deps.Cfg)
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	wh := repo.NewCH(deps.CH, opts.Database, opts.Table)
	svc := service.New(deps.Bucket, wh, service.Config{StagingPrefix: opts.StagingPrefix})
	return &Module{ports: Ports{Loader: svc, Warehouse: wh}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "load" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Loader returns the typed loader port
func (m *Module) Loader() domain.LoaderPort { return m.ports.Loader }

// Warehouse returns the warehouse used by the loader
func (m *Module) Warehouse() domain.Warehouse { return m.ports.Warehouse }
