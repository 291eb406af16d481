package logger

import "context"

type ctxKey int

const requestIDCtxKey ctxKey = iota

// WithRequestID stamps a request id onto the context so log lines emitted
// below the HTTP layer can be correlated with one request.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDCtxKey, id)
}

// RequestID returns the id stamped by WithRequestID, or "" when the context
// never passed through the HTTP layer.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}
