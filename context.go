package goAuthClient

import "context"

type quietContextKey struct{}

// WithoutNavigation marks ctx so that error responses to requests made with it
// do not trigger error-page navigation. The Client uses it for background
// calls such as the startup profile load and proactive refresh.
func WithoutNavigation(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietContextKey{}, true)
}

func navigationSuppressed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	quiet, _ := ctx.Value(quietContextKey{}).(bool)
	return quiet
}
