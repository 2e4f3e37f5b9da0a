package module

import (
	"time"

	"commitflow/internal/platform/config"
	"commitflow/internal/services/pipeline/guardrails"
)

// Options holds configuration for the pipeline module
type Options struct {
	Workers      int           `env:"CORE_PIPELINE_WORKERS" validate:"gte=1,lte=64"`
	LeaseTTL     time.Duration `env:"CORE_PIPELINE_LEASE_TTL" validate:"gt=0"`
	MaxRangeDays int           `env:"CORE_PIPELINE_MAX_RANGE_DAYS" validate:"gte=0"`
	Owner        string        `env:"CORE_PIPELINE_OWNER" validate:"required"`

	Timeouts guardrails.Timeouts
}

// FromConfig reads CORE_PIPELINE_*
func FromConfig(cfg config.Conf) Options {
	p := cfg.Prefix("CORE_PIPELINE_")
	return Options{
		Workers:      p.MayInt("WORKERS", 2),
		LeaseTTL:     p.MayDuration("LEASE_TTL", 30*time.Minute),
		MaxRangeDays: p.MayInt("MAX_RANGE_DAYS", 366),
		Owner:        p.MayString("OWNER", "commitflow"),
		Timeouts: guardrails.Timeouts{
			Run:       p.MayDuration("RUN_TIMEOUT", 0),
			Extract:   p.MayDuration("EXTRACT_TIMEOUT", 0),
			Transform: p.MayDuration("TRANSFORM_TIMEOUT", 0),
			Load:      p.MayDuration("LOAD_TIMEOUT", 0),
		},
	}
}
