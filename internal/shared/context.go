package shared

import "context"

// Context keys for request-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request-id"
	ctxKeySubject   ctxKey = "subject"
)

// WithRequestID stores the request ID so log lines deep in the dispatcher can carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// WithSubject stores the authenticated caller.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}

// Subject returns the authenticated caller, or "" when auth is disabled.
func Subject(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySubject).(string)
	return v
}
