package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commitflow/internal/platform/config"
	phttp "commitflow/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackFromConfig(t *testing.T) {
	t.Setenv("CORE_API_CORS_ORIGINS", "https://ops.example.com, https://dash.example.com")
	t.Setenv("CORE_API_REQUEST_TIMEOUT", "5s")

	o := StackFromConfig(config.New())
	assert.Equal(t, []string{"https://ops.example.com", "https://dash.example.com"}, o.CORSOrigins)
	assert.Equal(t, 5*time.Second, o.Timeout)
	assert.Equal(t, 500*time.Millisecond, o.SlowRequest)
}

func TestCommonStack(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	MountAPIV1(r, CommonStack(StackOptions{CORSOrigins: []string{"https://ops.example.com"}, Timeout: time.Second}), func(api Router) {
		api.Get("/runs", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		api.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	})

	do := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, req)
		return rec
	}

	t.Run("request id and no-cache", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/", nil)
		req.Header.Set("X-Request-Id", "rid-7")
		rec := do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
	})

	t.Run("panic becomes 500 envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil)
		req.Header.Set("X-Request-Id", "rid-9")
		rec := do(req)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var env map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "rid-9", env["request_id"])
		assert.Contains(t, env["error"], "panic recovered")
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
		req.Header.Set("Origin", "https://ops.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := do(req)
		assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
