// Package middleware holds the ops API middleware: chi and go-chi/cors
// adapters plus the zerolog access log, JSON panic recovery and bearer auth
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// RequestID propagates X-Request-Id or mints one and stores it on the context
func RequestID() func(http.Handler) http.Handler { return chimw.RequestID }

// RealIP sets RemoteAddr from X-Real-IP or X-Forwarded-For
func RealIP() func(http.Handler) http.Handler { return chimw.RealIP }

// NoCache marks every response uncacheable; run state changes under the reader
func NoCache() func(http.Handler) http.Handler { return chimw.NoCache }

// StripSlashes routes /runs/ as /runs
func StripSlashes() func(http.Handler) http.Handler { return chimw.StripSlashes }

// Heartbeat answers GET path with 200 before routing, for load balancers
func Heartbeat(path string) func(http.Handler) http.Handler { return chimw.Heartbeat(path) }

// Timeout cancels the request context after d
func Timeout(d time.Duration) func(http.Handler) http.Handler { return chimw.Timeout(d) }

// Compress gzips JSON responses at level
func Compress(level int) func(http.Handler) http.Handler {
	return chimw.Compress(level, "application/json")
}

// CORSOptions narrows go-chi/cors to what the ops API configures
type CORSOptions struct {
	AllowedOrigins []string
	MaxAge         int
}

// CORS allows the ops console to call the API from AllowedOrigins. No origins
// means same origin only.
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         o.MaxAge,
	})
}
