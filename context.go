package adminauth

import "context"

type ctxKey uint8

const (
	clientIPKey ctxKey = iota
	requestIDKey
)

// WithClientIP records the caller's address on ctx. Audit events carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// WithRequestID records a correlation id on ctx. Audit events and internal
// error logs carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func clientIPFromContext(ctx context.Context) string  { return ctxString(ctx, clientIPKey) }
func requestIDFromContext(ctx context.Context) string { return ctxString(ctx, requestIDKey) }

func ctxString(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}
