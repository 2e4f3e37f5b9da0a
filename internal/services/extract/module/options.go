package module

import (
	"time"

	"commitflow/internal/platform/config"
)

// Options holds configuration for the extract module
type Options struct {
	APIURL     string        `env:"CORE_GITHUB_API_URL" validate:"required,url"`
	Token      string        `env:"CORE_GITHUB_TOKEN" validate:"required"`
	Repo       string        `env:"CORE_GITHUB_REPO" validate:"required,repo_slug"`
	Ref        string        `env:"CORE_GITHUB_REF"`
	BatchSize  int           `env:"CORE_GITHUB_BATCH_SIZE" validate:"gt=0,lte=100"`
	MaxRetries int           `env:"CORE_GITHUB_MAX_RETRIES" validate:"gte=1"`
	RetryBase  time.Duration `env:"CORE_GITHUB_RETRY_BASE" validate:"gt=0"`
	MaxWait    time.Duration `env:"CORE_GITHUB_MAX_WAIT" validate:"gt=0"`
	RPS        float64       `env:"CORE_GITHUB_RPS" validate:"gte=0"`
	Timeout    time.Duration `env:"CORE_GITHUB_TIMEOUT" validate:"gt=0"`

	BronzePrefix string `env:"CORE_STORAGE_BRONZE_PREFIX" validate:"required"`
}

// FromConfig reads CORE_GITHUB_* and the bronze prefix
func FromConfig(cfg config.Conf) Options {
	gh := cfg.Prefix("CORE_GITHUB_")
	return Options{
		APIURL:       gh.MayString("API_URL", "https://api.github.com"),
		Token:        gh.MayString("TOKEN", ""),
		Repo:         gh.MayString("REPO", ""),
		Ref:          gh.MayString("REF", ""),
		BatchSize:    gh.MayInt("BATCH_SIZE", 100),
		MaxRetries:   gh.MayInt("MAX_RETRIES", 5),
		RetryBase:    gh.MayDuration("RETRY_BASE", 500*time.Millisecond),
		MaxWait:      gh.MayDuration("MAX_WAIT", 15*time.Minute),
		RPS:          gh.MayFloat64("RPS", 0),
		Timeout:      gh.MayDuration("TIMEOUT", 30*time.Second),
		BronzePrefix: cfg.Prefix("CORE_STORAGE_").MayString("BRONZE_PREFIX", "bronze/commits"),
	}
}
