// Package httpkit is what modules mount routes with. It re-exports the parts
// of the platform http package a module needs so modules never import it.
package httpkit

import (
	"net/http"

	phttp "commitflow/internal/platform/net/http"
	"commitflow/internal/platform/net/http/bind"
)

type (
	// Response is the envelope a handler returns
	Response = phttp.Response

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Router is the platform router seam
	Router = phttp.Router
)

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Accepted returns a 202 response for work that continues after the reply
func Accepted(data any) Response { return phttp.Accepted(data) }

// Error maps err to its status and envelope
func Error(err error) Response { return phttp.Error(err) }

// URLParam returns the named path parameter
func URLParam(r *http.Request, name string) string { return phttp.URLParam(r, name) }

// JSON decodes and validates a T body, then calls fn. Decode errors are 400,
// validation errors 422. A Response returned by fn is written as is.
func JSON[T any](fn func(*http.Request, T) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return phttp.Error(err)
		}
		return reply(fn(r, in))
	})
}

// Call adapts a handler that takes no body
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		return reply(fn(r))
	})
}

func reply(out any, err error) Response {
	if err != nil {
		return phttp.Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return phttp.OK(out)
}
