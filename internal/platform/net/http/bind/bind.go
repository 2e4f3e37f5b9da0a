// Package bind decodes and validates JSON request bodies
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	perr "commitflow/internal/platform/errors"
	"commitflow/internal/platform/validate"
)

// MaxBody caps how much of a request body is read
const MaxBody = 64 << 10

// ParseJSON decodes exactly one JSON object from the body into T and runs the
// shared validator over it. Unknown fields, trailing data, an empty body and
// malformed JSON are perr.ErrorCodeJSON; failed validation keeps the
// validator's code and field.
func ParseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil || r.Body == http.NoBody {
		return v, perr.JSONErrf("empty body")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, perr.JSONErrf("empty body")
		}
		return v, perr.JSONErrf("invalid JSON: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return v, perr.JSONErrf("unexpected trailing data")
	}

	if err := validate.Struct(v); err != nil {
		if perr.CodeOf(err) == perr.ErrorCodeUnknown {
			return v, perr.JSONErrf("body is not an object")
		}
		return v, err
	}
	return v, nil
}
