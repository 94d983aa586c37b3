// Package goAuthClient is the client side of a token-authenticated
// user-management backend: it logs users in, keeps their access token fresh,
// replays requests that fail with 401 after a single shared refresh, and
// exposes the decoded claims for route guarding.
//
// The package is designed for long-lived processes: Client methods are safe to
// call from multiple goroutines after construction through [Builder.Build].
//
// # Architecture boundaries
//
// goAuthClient is the public surface. It exposes [Client], [Builder], [Config],
// and value types ([Session], [User], [MetricsSnapshot], etc.). Token storage
// lives in tokenstore, claims decoding in claims, the authenticated request
// pipeline in transport, and the per-operation network steps under
// internal/flows.
//
// # What this package must NOT do
//
//   - Verify token signatures. Claims are read for routing and expiry only;
//     the backend remains the authority.
//   - Log or emit raw tokens or passwords.
//   - Mutate session state after [Client.Close].
//   - Import any sub-package that re-imports goAuthClient (no import cycles).
//
// # Session contract
//
// [Client.IsAuthenticated] is true only while the token store holds an access
// token that has not expired. Tearing down a session clears the store and
// resets the user in one critical section, so no [Session] snapshot shows one
// without the other.
package goAuthClient
