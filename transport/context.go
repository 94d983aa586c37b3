package transport

import "context"

type noRefreshKey struct{}

// WithoutRefresh marks ctx so that a 401 on a request made with it is
// returned to the caller as is instead of triggering a token refresh and a
// replay.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRefreshKey{}, true)
}

func refreshSuppressed(ctx context.Context) bool {
	off, _ := ctx.Value(noRefreshKey{}).(bool)
	return off
}
