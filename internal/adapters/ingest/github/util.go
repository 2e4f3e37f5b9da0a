package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "commitflow/internal/platform/errors"
)

// RateLimitedError reports an upstream rate limit; the same request may be
// retried once ResetAt has passed
type RateLimitedError struct {
	Status     int
	ResetAt    time.Time // zero when upstream gave no hint
	RetryAfter time.Duration
	err        error
}

// Error interface
func (e *RateLimitedError) Error() string { return e.err.Error() }

// Unwrap interface
func (e *RateLimitedError) Unwrap() error { return e.err }

// Wait returns how long to hold off from now; 0 when upstream gave no hint
func (e *RateLimitedError) Wait(now time.Time) time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	if !e.ResetAt.IsZero() && e.ResetAt.After(now) {
		return e.ResetAt.Sub(now)
	}
	return 0
}

// NewRateLimited builds the error for a limited response; reset and retryAfter may be zero
func NewRateLimited(status int, reset time.Time, retryAfter time.Duration) *RateLimitedError {
	return &RateLimitedError{
		Status:     status,
		ResetAt:    reset,
		RetryAfter: retryAfter,
		err:        perr.Newf(perr.ErrorCodeTooManyRequests, "github: rate limited (status %d, reset %s)", status, reset.Format(time.RFC3339)),
	}
}

// AsRateLimited extracts a *RateLimitedError from err
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsTransient reports whether a retry of the same request may succeed
func IsTransient(err error) bool {
	return perr.IsCode(err, perr.ErrorCodeUnavailable)
}

// IsFatal reports whether the request will never succeed as sent
func IsFatal(err error) bool {
	return perr.IsCode(err, perr.ErrorCodeFatalFetch)
}

// parseRateHeaders reads X-RateLimit-* and Retry-After; remaining is -1 when absent
func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter time.Duration) {
	remaining = -1
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			remaining = n
		}
	}
	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	if ra := atoi(h.Get("Retry-After")); ra > 0 {
		retryAfter = time.Duration(ra) * time.Second
	}
	return
}

// rateFromBody prefers body fields and falls back to headers
func rateFromBody(b pageBody, hdrRemaining int, hdrReset time.Time) (int, time.Time, error) {
	remaining, reset := hdrRemaining, hdrReset
	if b.RateLimitRemaining != nil {
		remaining = *b.RateLimitRemaining
	}
	if b.RateLimitResetAt != nil && *b.RateLimitResetAt != "" {
		t, err := time.Parse(time.RFC3339, *b.RateLimitResetAt)
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("rate_limit_reset_at: %w", err)
		}
		reset = t.UTC()
	}
	return remaining, reset, nil
}

// limitFromBody reads the rate fields of a limited response body. Bodies that
// are not a page envelope leave the header values in place.
func limitFromBody(data []byte, hdrRemaining int, hdrReset time.Time) (int, time.Time) {
	var b pageBody
	if len(data) == 0 || json.Unmarshal(data, &b) != nil {
		return hdrRemaining, hdrReset
	}
	rem, reset, err := rateFromBody(b, hdrRemaining, hdrReset)
	if err != nil {
		return hdrRemaining, hdrReset
	}
	return rem, reset
}

// readErrorBody reads at most errBodyBytes of an error response and closes it
func readErrorBody(rc io.ReadCloser) []byte {
	data, _ := io.ReadAll(io.LimitReader(rc, errBodyBytes))
	_ = rc.Close()
	return data
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	i, _ := strconv.Atoi(s)
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
