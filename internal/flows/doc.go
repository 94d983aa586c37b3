// Package flows contains the network steps behind every Client session
// operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, etc.) accepts a typed
// dependency struct and returns a result carrying a failure kind, leaving
// state transitions, events, and metrics to the Client. This keeps the
// Client type thin and lets the flows be tested against stub dependencies.
//
// # Architecture boundaries
//
// Flows call the API through function dependencies and write tokens through
// [TokenStore]. They do NOT own session state; the Client decides what a
// failure means for the session.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthClient (to avoid import cycles).
//   - Clear the token store; teardown belongs to the Client.
package flows
