package module

import (
	"crypto/subtle"

	"commitflow/internal/modkit/httpkit"
	"commitflow/internal/platform/config"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/net/middleware"
)

// Options controls the runs API
type Options struct {
	// Token guards the write endpoints; empty leaves them open
	Token string `env:"CORE_API_TOKEN" validate:"omitempty,min=16"`
}

// FromConfig reads CORE_API_*
func FromConfig(cfg config.Conf) Options {
	return Options{Token: cfg.Prefix("CORE_API_").MayString("TOKEN", "")}
}

// authPort returns a bearer check for Token, nil when no token is configured
func (o Options) authPort() middleware.AuthPort {
	if o.Token == "" {
		return nil
	}
	want := []byte(o.Token)
	return httpkit.NewPortFunc(func(token string) (string, error) {
		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			return "", perr.Unauthorizedf("invalid token")
		}
		return "api-token", nil
	})
}
