package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"commitflow/internal/platform/config"
	phttp "commitflow/internal/platform/net/http"
	"commitflow/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string
	SlowRequest time.Duration
	Timeout     time.Duration
}

// StackFromConfig reads CORE_API_CORS_ORIGINS, CORE_API_SLOW_REQUEST and
// CORE_API_REQUEST_TIMEOUT
func StackFromConfig(cfg config.Conf) StackOptions {
	c := cfg.Prefix("CORE_API_")
	return StackOptions{
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		SlowRequest: c.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
		Timeout:     c.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

// CommonStack is the middleware every API route runs behind. Order matters:
// the access log sees the status RecoverJSON writes for a panic.
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(o.SlowRequest),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins, MaxAge: 300}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
	}
	if o.Timeout > 0 {
		stack = append(stack, middleware.Timeout(o.Timeout))
	}
	return stack
}

// Auth wires the auth middleware to the platform JSON writer
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler {
	return middleware.Auth(p, phttp.JSON)
}
