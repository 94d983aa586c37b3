package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureRequest
	RefreshFailureMalformed
	RefreshFailureStore
	RefreshFailureSuperseded
)

// ErrRefreshResponseIncomplete is returned when the refresh response has no
// access token.
var ErrRefreshResponseIncomplete = errors.New("refresh response missing access token")

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Post           PostFunc
	Store          RefreshStore
	NoRefreshToken error
	// Superseded is reported when the session was cleared while the request
	// was in flight.
	Superseded error
}

// RefreshResult carries the issued token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Tokens  tokenstore.TokenPair
	Rotated bool
	// Generation is the store generation the refresh token was read under.
	Generation uint64
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// RunRefresh exchanges the stored refresh token for a new pair. Backends that
// do not rotate refresh tokens return only an access token; the stored
// refresh token is kept in that case. A pair that arrives after the store was
// cleared is discarded.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	refresh, gen, ok := deps.Store.RefreshLease()
	if !ok {
		return RefreshResult{Failure: RefreshFailureNoToken, Err: deps.NoRefreshToken}
	}

	var pair tokenstore.TokenPair
	if err := deps.Post(ctx, api.EndpointRefresh, refreshRequest{Refresh: refresh}, &pair); err != nil {
		return RefreshResult{Failure: RefreshFailureRequest, Err: err, Generation: gen}
	}
	if pair.Access == "" {
		return RefreshResult{Failure: RefreshFailureMalformed, Err: ErrRefreshResponseIncomplete, Generation: gen}
	}

	rotated := pair.Refresh != "" && pair.Refresh != refresh
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}

	if err := deps.Store.SetTokensIf(ctx, gen, pair); err != nil {
		if errors.Is(err, tokenstore.ErrSuperseded) {
			superseded := deps.Superseded
			if superseded == nil {
				superseded = err
			}
			return RefreshResult{Failure: RefreshFailureSuperseded, Err: superseded, Generation: gen}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Generation: gen}
	}
	return RefreshResult{
		Failure:    RefreshFailureNone,
		Tokens:     pair,
		Rotated:    rotated,
		Generation: gen,
	}
}
