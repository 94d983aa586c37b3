// Package transport provides the http.RoundTripper chain that every backend
// call flows through.
//
// # Chain
//
//   - [RequestID] stamps X-Request-Id on each logical request.
//   - [Logging] writes one structured record per logical request and places a
//     request-scoped logger in the request context.
//   - [Pipeline] attaches the bearer token, recovers from 401 through the
//     shared [RefreshGate], replays the request once, and reports 403, 404, and
//     5xx responses to a [Navigator].
//
// [Chain] composes them; the first middleware is outermost.
//
// # Refresh coordination
//
// Only one refresh may be in flight per process. [RefreshGate] coalesces
// concurrent callers onto a single refresh and hands each of them its result.
// The refresh itself runs detached from any single caller's cancellation.
//
// # What this package must NOT do
//
//   - Decode tokens or evaluate permissions.
//   - Store tokens (it only reads them through [TokenSource]).
//   - Refresh on auth bootstrap endpoints (login, refresh, register) or on the
//     public password-reset endpoints.
package transport
