// Package module wires the transform stage
package module

import (
	"commitflow/internal/core/mapping"
	"commitflow/internal/modkit"
	"commitflow/internal/platform/config"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/validate"
	"commitflow/internal/services/transform/domain"
	"commitflow/internal/services/transform/service"
)

// Options holds configuration for the transform module
type Options struct {
	BronzePrefix     string  `env:"CORE_STORAGE_BRONZE_PREFIX" validate:"required"`
	StagingPrefix    string  `env:"CORE_STORAGE_STAGING_PREFIX" validate:"required,nefield=BronzePrefix"`
	MaxExcludedRatio float64 `env:"CORE_TRANSFORM_MAX_EXCLUDED_RATIO" validate:"gte=0,lte=1"`
}

// FromConfig reads prefixes and the threshold; an unset threshold keeps the mapping default
func FromConfig(cfg config.Conf, def float64) Options {
	st := cfg.Prefix("CORE_STORAGE_")
	return Options{
		BronzePrefix:     st.MayString("BRONZE_PREFIX", "bronze/commits"),
		StagingPrefix:    st.MayString("STAGING_PREFIX", "staging/commits"),
		MaxExcludedRatio: cfg.Prefix("CORE_TRANSFORM_").MayRatio("MAX_EXCLUDED_RATIO", def),
	}
}

// Ports defines the transform module ports
type Ports struct {
	Transformer domain.TransformerPort
}

// Module implements the transform module
type Module struct {
	plan  *mapping.Plan
	ports Ports
}

// New constructs the transform module using the embedded mapping
func New(deps modkit.Deps) (*Module, error) {
	if deps.Bucket == nil {
		return nil, perr.InvalidArgf("transform: object store bucket is required")
	}
	plan, err := mapping.Default()
	if err != nil {
		return nil, err
	}
	opts := FromConfig(deps.Cfg, plan.MaxExcludedRatio)
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}
	plan = plan.WithThreshold(opts.MaxExcludedRatio)

	svc := service.New(deps.Bucket, plan, service.Config{
		BronzePrefix:  opts.BronzePrefix,
		StagingPrefix: opts.StagingPrefix,
	})
	return &Module{plan: plan, ports: Ports{Transformer: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "transform" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Transformer returns the typed transformer port
func (m *Module) Transformer() domain.TransformerPort { return m.ports.Transformer }

// MappingVersion is the version of the compiled mapping in use
func (m *Module) MappingVersion() int { return m.plan.Version }

// Plan returns the compiled mapping with the configured threshold applied
func (m *Module) Plan() *mapping.Plan { return m.plan }
