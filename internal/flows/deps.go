package flows

import (
	"context"
	"net/url"

	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// PostFunc issues a JSON POST and decodes the response payload into out.
type PostFunc func(ctx context.Context, endpoint string, body, out any) error

// GetFunc issues a GET and decodes the response payload into out.
type GetFunc func(ctx context.Context, endpoint string, query url.Values, out any) error

// TokenStore is the token store surface used by flows.
type TokenStore interface {
	SetTokens(ctx context.Context, pair tokenstore.TokenPair) error
	RefreshToken() (string, bool)
}

// RefreshStore is the token store surface used by the refresh flow. The
// generation read with the refresh token guards the write of the new pair.
type RefreshStore interface {
	RefreshLease() (string, uint64, bool)
	SetTokensIf(ctx context.Context, gen uint64, pair tokenstore.TokenPair) error
}
