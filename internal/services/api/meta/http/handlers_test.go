package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commitflow/internal/core/mapping"
	phttp "commitflow/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, d Deps, path string) map[string]any {
	t.Helper()
	r := phttp.AdaptChi(chi.NewRouter())
	Register(r, d)
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func dependencies(pg, ch, bucket Pinger) []Dependency {
	return []Dependency{
		{Name: "pg", Pinger: pg},
		{Name: "ch", Required: true, Pinger: ch},
		{Name: "bucket", Required: true, Pinger: bucket},
	}
}

func TestHealth(t *testing.T) {
	got := serve(t, Deps{Service: "commitflow", StartedAt: time.Now()}, "/health")
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "commitflow", got["service"])
}

func TestReady(t *testing.T) {
	cases := []struct {
		name string
		deps Deps
		want string
	}{
		{"all ok", Deps{Dependencies: dependencies(pinger{}, pinger{}, pinger{})}, "ok"},
		{"no ledger is fine", Deps{Dependencies: dependencies(nil, pinger{}, pinger{})}, "ok"},
		{"missing warehouse", Deps{Dependencies: dependencies(nil, nil, pinger{})}, "degraded"},
		{"bucket down", Deps{Dependencies: dependencies(nil, pinger{}, pinger{err: errors.New("403")})}, "fail"},
		{"ledger down", Deps{Dependencies: dependencies(pinger{err: errors.New("refused")}, nil, pinger{})}, "fail"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := serve(t, c.deps, "/ready")
			assert.Equal(t, c.want, got["status"])
			assert.Len(t, got["checks"], 3)
		})
	}
}

func TestMapping(t *testing.T) {
	plan, err := mapping.Default()
	require.NoError(t, err)

	got := serve(t, Deps{Plan: plan.WithThreshold(0.25)}, "/mapping")
	assert.EqualValues(t, plan.Version, got["mapping_version"])
	assert.EqualValues(t, 0.25, got["max_excluded_ratio"])
	assert.NotNil(t, got["build"])

	got = serve(t, Deps{}, "/mapping")
	assert.EqualValues(t, 0, got["mapping_version"])
}

func TestServiceAndVersion(t *testing.T) {
	d := Deps{Service: "commitflow", StartedAt: time.Now().Add(-time.Minute)}
	got := serve(t, d, "/service")
	assert.GreaterOrEqual(t, got["uptime"].(float64), float64(59))

	got = serve(t, d, "/version")
	assert.Equal(t, "commitflow", got["service"])
}
