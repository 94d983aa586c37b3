package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/tokenstore"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalid
	LoginFailureRequest
	LoginFailureMalformed
	LoginFailureStore
)

// ErrLoginResponseIncomplete is returned when the backend reports success but
// omits the token pair.
var ErrLoginResponseIncomplete = errors.New("login response missing tokens")

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Validate func(any) error
	Post     PostFunc
	Store    TokenStore
}

// LoginResult carries the authenticated user or failure metadata.
type LoginResult[U any] struct {
	Failure LoginFailureKind
	Err     error
	User    U
	Tokens  tokenstore.TokenPair
}

type loginResponse[U any] struct {
	User   U                    `json:"user"`
	Tokens tokenstore.TokenPair `json:"tokens"`
}

// RunLogin validates credentials, posts them, and stores the issued pair.
// The token store is written only after a complete response.
func RunLogin[U any](ctx context.Context, credentials any, deps LoginDeps) LoginResult[U] {
	if deps.Validate != nil {
		if err := deps.Validate(credentials); err != nil {
			return LoginResult[U]{Failure: LoginFailureInvalid, Err: err}
		}
	}

	var resp loginResponse[U]
	if err := deps.Post(ctx, api.EndpointLogin, credentials, &resp); err != nil {
		return LoginResult[U]{Failure: LoginFailureRequest, Err: err}
	}
	if resp.Tokens.Access == "" || resp.Tokens.Refresh == "" {
		return LoginResult[U]{Failure: LoginFailureMalformed, Err: ErrLoginResponseIncomplete}
	}

	if err := deps.Store.SetTokens(ctx, resp.Tokens); err != nil {
		return LoginResult[U]{Failure: LoginFailureStore, Err: err}
	}

	return LoginResult[U]{
		Failure: LoginFailureNone,
		User:    resp.User,
		Tokens:  resp.Tokens,
	}
}
