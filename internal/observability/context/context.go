package context

import "context"

type requestIDKey struct{}
type entityIDKey struct{}

// WithRequestID stores the inbound request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithEntityID stores the authenticated business id for log correlation.
func WithEntityID(ctx context.Context, entityID string) context.Context {
	if entityID == "" {
		return ctx
	}
	return context.WithValue(ctx, entityIDKey{}, entityID)
}

func EntityIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(entityIDKey{}).(string); ok {
		return v
	}
	return ""
}
