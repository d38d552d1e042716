package telemetry

import "context"

type turnIDKey struct{}
type sessionIDKey struct{}

// WithTurnID returns a child context that carries the provided turn ID.
// If ctx is nil, context.Background() is used.
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn ID from ctx, if present and non-empty.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, turnIDKey{})
}

// WithSessionID returns a child context that carries the conversation session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session id from ctx, if present and non-empty.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, sessionIDKey{})
}

func stringValue(ctx context.Context, key any) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Correlate returns the ids carried by ctx as event fields.
func Correlate(ctx context.Context, fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	if id, ok := TurnIDFromContext(ctx); ok {
		fields["turn_id"] = id
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		fields["session_id"] = id
	}
	return fields
}
