// Package http serves the meta routes: liveness, readiness, build and mapping info
package http

import (
	"context"
	"net/http"
	"time"

	"commitflow/internal/core/mapping"
	"commitflow/internal/core/version"
	"commitflow/internal/modkit/httpkit"

	"golang.org/x/sync/errgroup"
)

// Pinger is a dependency readiness can ping
type Pinger interface {
	Ping(context.Context) error
}

// Dependency is one readiness check. A nil Pinger is reported as skipped, which
// degrades readiness only when the dependency is Required.
type Dependency struct {
	Name     string
	Required bool
	Pinger   Pinger
}

// Deps feed the handlers
type Deps struct {
	Service      string
	StartedAt    time.Time
	Dependencies []Dependency
	Plan         *mapping.Plan
}

// readyTimeout bounds a whole readiness round
const readyTimeout = 2 * time.Second

// Register mounts the meta routes on r
func Register(r httpkit.Router, d Deps) {
	httpkit.Get(r, "/health", d.health)
	httpkit.Get(r, "/ready", d.ready)
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/service", d.service)
	httpkit.Get(r, "/mapping", d.mapping)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"commitflow"`
	Started string `json:"started" example:"2025-09-03T13:00:00Z"`
	Now     string `json:"now"     example:"2025-09-03T13:05:00Z"`
}

// ReadyCheck is the outcome of one dependency ping: ok, fail or skipped
type ReadyCheck struct {
	Name   string `json:"name"   example:"ch"`
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse is ok, degraded (a required dependency is missing) or fail
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2025-09-03T13:05:00Z"`
}

// ServiceResponse reports uptime in seconds
type ServiceResponse struct {
	Name    string `json:"name"    example:"commitflow"`
	Started string `json:"started" example:"2025-09-03T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// MappingResponse describes the plan the transform stage applies
type MappingResponse struct {
	Version          int               `json:"mapping_version"    example:"1"`
	Name             string            `json:"name"               example:"github-commits"`
	MaxExcludedRatio float64           `json:"max_excluded_ratio" example:"0.05"`
	Build            version.BuildInfo `json:"build"`
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func (d Deps) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: d.Service, Started: stamp(d.StartedAt), Now: stamp(time.Now())}, nil
}

func (d Deps) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make([]ReadyCheck, len(d.Dependencies))
	var g errgroup.Group
	for i, p := range d.Dependencies {
		checks[i] = ReadyCheck{Name: p.Name, Status: "skipped"}
		if p.Pinger == nil {
			continue
		}
		g.Go(func() error {
			if err := p.Pinger.Ping(ctx); err != nil {
				checks[i].Status, checks[i].Error = "fail", err.Error()
			} else {
				checks[i].Status = "ok"
			}
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	for i, c := range checks {
		if c.Status == "fail" {
			status = "fail"
			break
		}
		if c.Status == "skipped" && d.Dependencies[i].Required {
			status = "degraded"
		}
	}
	return ReadyResponse{Status: status, Checks: checks, Now: stamp(time.Now())}, nil
}

func (d Deps) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    d.Service,
		Started: stamp(d.StartedAt),
		Uptime:  int64(time.Since(d.StartedAt) / time.Second),
	}, nil
}

func (d Deps) mapping(*http.Request) (any, error) {
	out := MappingResponse{Build: version.Info()}
	if p := d.Plan; p != nil {
		out.Version, out.Name, out.MaxExcludedRatio = p.Version, p.Name, p.MaxExcludedRatio
	}
	return out, nil
}
