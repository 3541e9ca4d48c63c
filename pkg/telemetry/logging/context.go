package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UIDKey is the context key for the throttled uid.
	UIDKey contextKey = "uid"

	// SourceKey is the context key for the control channel a command came from.
	SourceKey contextKey = "source"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUID adds a uid to the context.
func WithUID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, UIDKey, uid)
}

// GetUID retrieves the uid from the context.
func GetUID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(UIDKey).(int64)
	return uid, ok
}

// WithSource adds a control source name to the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource retrieves the control source from the context.
func GetSource(ctx context.Context) string {
	if source, ok := ctx.Value(SourceKey).(string); ok {
		return source
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if uid, ok := GetUID(ctx); ok {
		fields = append(fields, "uid", uid)
	}
	if source := GetSource(ctx); source != "" {
		fields = append(fields, "source", source)
	}

	return fields
}
