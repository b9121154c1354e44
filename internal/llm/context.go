package llm

import "context"

type contextKey string

const requestIDKey contextKey = "llm_request_id"

// WithRequestID attaches the inbound request id to the context so provider
// decorators can correlate upstream calls with the request that caused them.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom extracts the request id from the context, or "" if unset.
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
