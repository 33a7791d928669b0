package common

import "context"

type ctxKey string

const (
	sessionIDKey  ctxKey = "pos/session-id"
	operatorIDKey ctxKey = "pos/operator-id"
)

// WithSessionID stores the terminal session identifier on the provided context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the terminal session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithOperatorID stores the logged-in operator on the context.
func WithOperatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorID extracts the logged-in operator from the context if present.
func OperatorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operatorIDKey).(string)
	return id, ok && id != ""
}
