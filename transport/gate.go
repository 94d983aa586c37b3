package transport

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// DefaultRefreshTimeout bounds a single refresh call when the gate is built
// with a zero timeout.
const DefaultRefreshTimeout = 15 * time.Second

// RefreshFunc performs one refresh and returns the new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshGate guarantees at most one refresh in flight per process. Callers
// that arrive while a refresh runs wait for it and share its outcome.
type RefreshGate struct {
	group    singleflight.Group
	timeout  time.Duration
	inFlight atomic.Bool
	started  atomic.Uint64
	shared   atomic.Uint64
}

// NewRefreshGate returns a gate whose refreshes are bounded by timeout.
func NewRefreshGate(timeout time.Duration) *RefreshGate {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &RefreshGate{timeout: timeout}
}

// Do runs fn unless a refresh is already in flight, in which case it waits
// for that one. fn receives a context that keeps ctx's values but not its
// cancellation, bounded by the gate timeout, so a caller giving up never
// abandons the refresh other callers are waiting on. shared reports whether
// the result was produced for another caller too.
func (g *RefreshGate) Do(ctx context.Context, fn RefreshFunc) (token string, shared bool, err error) {
	ch := g.group.DoChan(refreshKey, func() (any, error) {
		g.inFlight.Store(true)
		defer g.inFlight.Store(false)
		g.started.Add(1)

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return fn(rctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			g.shared.Add(1)
		}
		token, _ = res.Val.(string)
		return token, res.Shared, res.Err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// InFlight reports whether a refresh is currently running.
func (g *RefreshGate) InFlight() bool {
	return g.inFlight.Load()
}

// Started returns how many refreshes the gate has executed.
func (g *RefreshGate) Started() uint64 {
	return g.started.Load()
}

// Shared returns how many callers received a result shared with others.
func (g *RefreshGate) Shared() uint64 {
	return g.shared.Load()
}
