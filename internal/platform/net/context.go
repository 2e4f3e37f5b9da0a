// Package net holds transport neutral request helpers: request scoped ids and
// the error envelope
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type operatorKey struct{}

// WithRequestID sets the request id so chi's GetReqID and RequestID see it
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// RequestID returns the request id on ctx or ""
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithOperator records who authenticated the request
func WithOperator(ctx context.Context, operator string) context.Context {
	if operator == "" {
		return ctx
	}
	return context.WithValue(ctx, operatorKey{}, operator)
}

// Operator returns the authenticated operator on ctx or ""
func Operator(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey{}).(string)
	return v
}
