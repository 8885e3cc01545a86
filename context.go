package authedge

import "context"

type clientIPContextKey struct{}

// WithClientIP stores the caller's IP for audit emission. Typically set by
// transport middleware before the engine is invoked.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
