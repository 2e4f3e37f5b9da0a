// Package http provides http transport for run history and manual triggers
package http

import (
	stdhttp "net/http"
	"strconv"

	"commitflow/internal/modkit/httpkit"
	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/net/middleware"
	"commitflow/internal/services/api/runs/domain"
)

// Register mounts the runs endpoints. Writes go behind auth when it is non nil.
func Register(r httpkit.Router, s domain.ServicePort, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/runs", h.list)
	httpkit.Get(r, "/runs/{id}", h.get)
	httpkit.Get(r, "/dates/{date}/run", h.latest)

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.TriggerInput](pr, "/runs", h.trigger)
		httpkit.PostJSON[domain.BackfillInput](pr, "/backfills", h.backfill)
	})
}

type handlers struct{ svc domain.ServicePort }

// @Summary Recent runs, newest first
// @Tags Runs
// @Produce json
// @Param limit query int false "max rows (1-500)"
// @Router /pipeline/runs [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	var in domain.ListInput
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, perr.WithField(perr.InvalidArgf("limit must be an integer"), "limit")
		}
		in.Limit = n
	}
	return h.svc.List(r.Context(), in)
}

// @Summary One run by id
// @Tags Runs
// @Produce json
// @Router /pipeline/runs/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), httpkit.URLParam(r, "id"))
}

// @Summary Newest run for a logical date
// @Tags Runs
// @Produce json
// @Router /pipeline/dates/{date}/run [get]
func (h *handlers) latest(r *stdhttp.Request) (any, error) {
	return h.svc.Latest(r.Context(), httpkit.URLParam(r, "date"))
}

// @Summary Queue a run for one logical date
// @Tags Runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /pipeline/runs [post]
func (h *handlers) trigger(r *stdhttp.Request, in domain.TriggerInput) (any, error) {
	out, err := h.svc.Trigger(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(out), nil
}

// @Summary Queue every logical date in a range
// @Tags Runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /pipeline/backfills [post]
func (h *handlers) backfill(r *stdhttp.Request, in domain.BackfillInput) (any, error) {
	out, err := h.svc.Backfill(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(out), nil
}
