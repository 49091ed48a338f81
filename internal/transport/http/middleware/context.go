// Package middleware holds the HTTP middleware chain: request ids, logging, recovery,
// bearer-token auth and per-client rate limiting.
package middleware

import (
	"context"
	"errors"
)

type contextKey string

var (
	accountIDKey = contextKey("account_id")
	requestIDKey = contextKey("request_id")
)

var errNoAccount = errors.New("account id not found in context")

// AccountIDFromContext returns the account authenticated by the auth middleware.
func AccountIDFromContext(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(accountIDKey).(int64)
	if !ok || id <= 0 {
		return 0, errNoAccount
	}
	return id, nil
}

// ContextWithAccountID is used by the auth middleware and by tests.
func ContextWithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
