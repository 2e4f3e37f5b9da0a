// Package http is the ops API transport: the chi router seam, the response
// envelope and the server lifecycle
package http

import (
	"cmp"
	"encoding/json"
	stdhttp "net/http"

	pnet "commitflow/internal/platform/net"
)

// Envelope is the body of every JSON response: the status block, plus data
// on success or the error fields on failure
type Envelope struct {
	pnet.Wire
	Data any `json:"data,omitempty"`
}

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is what a return-style handler produces. An error Body sets the
// status itself.
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// Handle adapts a Response-returning handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) { h(r).Write(w, r) }
}

// Write renders resp. A 204 has no body.
func (resp Response) Write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h := w.Header()
	for k, vv := range resp.Header {
		h[k] = append(h[k], vv...)
	}
	reqID := pnet.RequestID(r.Context())

	if err, ok := resp.Body.(error); ok {
		status, wire := pnet.Error(err, reqID)
		JSON(w, status, Envelope{Wire: wire})
		return
	}

	status := cmp.Or(resp.Status, stdhttp.StatusOK)
	if status == stdhttp.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	JSON(w, status, Envelope{
		Wire: pnet.Wire{StatusCode: status, Status: stdhttp.StatusText(status), RequestID: reqID},
		Data: resp.Body,
	})
}

// OK returns a 200 response
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Accepted returns a 202 response
func Accepted(data any) Response { return Response{Status: stdhttp.StatusAccepted, Body: data} }

// NoContent returns a 204 response
func NoContent() Response { return Response{Status: stdhttp.StatusNoContent} }

// Error returns a response whose status and envelope come from err
func Error(err error) Response { return Response{Body: err} }
