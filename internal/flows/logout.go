package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
)

// LogoutDeps captures logout flow dependencies. Post must not refresh and
// replay on 401: the body names the refresh token to revoke, and a replay
// would carry a token the refresh itself just rotated out.
type LogoutDeps struct {
	Post    PostFunc
	Store   TokenStore
	Timeout time.Duration
	// Refresh renews the access token after the backend rejected it. The
	// logout is then sent again with the refresh token read afresh from
	// Store. Optional.
	Refresh func(ctx context.Context) error
}

// LogoutResult reports the outcome of the server-side revocation.
type LogoutResult struct {
	Attempted bool
	Retried   bool
	Err       error
}

// RunLogout asks the backend to revoke the stored refresh token. The call is
// bounded by deps.Timeout and detached from ctx cancellation so a logout
// started by a cancelled request still reaches the backend. It never clears
// local state.
//
// A 401 on the first attempt means the access token expired. With
// deps.Refresh set, the session is renewed once and the logout is repeated
// for whatever refresh token is current afterwards.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	refresh, ok := deps.Store.RefreshToken()
	if !ok {
		return LogoutResult{}
	}

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := deps.Post(rctx, api.EndpointLogout, refreshRequest{Refresh: refresh}, nil)
	if err == nil || deps.Refresh == nil || !errors.Is(err, api.ErrUnauthorized) {
		return LogoutResult{Attempted: true, Err: err}
	}

	if rerr := deps.Refresh(rctx); rerr != nil {
		return LogoutResult{Attempted: true, Err: err}
	}
	if refresh, ok = deps.Store.RefreshToken(); !ok {
		return LogoutResult{Attempted: true, Err: err}
	}
	err = deps.Post(rctx, api.EndpointLogout, refreshRequest{Refresh: refresh}, nil)
	return LogoutResult{Attempted: true, Retried: true, Err: err}
}
