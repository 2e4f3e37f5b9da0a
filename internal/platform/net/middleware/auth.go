package middleware

import (
	"net/http"

	pnet "commitflow/internal/platform/net"
)

// AuthPort authenticates a request and names the operator behind it
type AuthPort interface {
	Authenticate(r *http.Request) (operator string, err error)
}

// Auth rejects requests the port does not accept and records the operator on
// the request context. A nil port lets everything through.
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if p == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, err := p.Authenticate(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithOperator(r.Context(), op)))
		})
	}
}
