package httpkit

import (
	"net/http"
	"strings"

	perr "commitflow/internal/platform/errors"
)

// TokenFunc checks a bearer token and names the operator it belongs to
type TokenFunc func(token string) (operator string, err error)

// Port implements middleware.AuthPort over the Authorization header
type Port struct {
	check TokenFunc
}

// NewPortFunc builds a Port from a token check
func NewPortFunc(fn TokenFunc) *Port {
	return &Port{check: fn}
}

// Authenticate reads "Authorization: Bearer <token>". The scheme is case
// insensitive; any failure is Unauthorized.
func (p *Port) Authenticate(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	if p.check == nil {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	op, err := p.check(token)
	if err != nil {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	return op, nil
}
