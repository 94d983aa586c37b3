package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/tokenstore"
	"github.com/MrEthical07/goAuthClient/transport"
)

var (
	// ErrNetwork is returned when the backend could not be reached.
	ErrNetwork = api.ErrNetwork
	// ErrUnauthorized is returned for a 401 that a refresh could not recover.
	ErrUnauthorized = api.ErrUnauthorized
	// ErrForbidden is returned for a 403 response.
	ErrForbidden = api.ErrForbidden
	// ErrNotFound is returned for a 404 response.
	ErrNotFound = api.ErrNotFound
	// ErrServer is returned for a 5xx response.
	ErrServer = api.ErrServer
	// ErrValidation is returned for client-side validation failures and for
	// 400, 409 and 422 responses.
	ErrValidation = api.ErrValidation
	// ErrUnknown is returned for any other non-2xx response.
	ErrUnknown = api.ErrUnknown

	// ErrRefreshFailed is returned by requests whose 401 could not be
	// recovered because the refresh itself failed.
	ErrRefreshFailed = transport.ErrRefreshFailed
	// ErrTokenMalformed is returned when the backend issues an access token
	// without a decodable payload.
	ErrTokenMalformed = tokenstore.ErrTokenMalformed

	// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrClientClosed is returned by every operation after Close.
	ErrClientClosed = errors.New("client closed")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// ErrorMessage returns the user-facing message for err, flattening backend
// field errors the same way the session's LastError does.
func ErrorMessage(err error) string {
	return api.Message(err)
}
