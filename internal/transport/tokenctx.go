package transport

import (
	"context"
)

type ctxKey string

const withTokenKey ctxKey = "with-token"

// WithToken marks requests made with the context as authenticated.
// Bearer attaches access token only to marked requests
func WithToken(ctx context.Context) context.Context {
	return context.WithValue(ctx, withTokenKey, true)
}

// Report whether context was marked with WithToken
func TokenRequested(ctx context.Context) bool {
	marked, ok := ctx.Value(withTokenKey).(bool)
	return ok && marked
}
