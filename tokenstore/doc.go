// Package tokenstore holds the client's access/refresh token pair and the
// cached expiry of the access token.
//
// # Persistence
//
// A [Store] keeps an in-memory [Record] and mirrors every write to a
// [Backend]. Three backends ship with the package: [MemoryBackend] for
// tests and short-lived processes, [RedisBackend] for shared or long-lived
// deployments, and [FileBackend] for CLIs that must survive restarts. Each
// backend writes and clears the access token, refresh token, and expiry as
// one unit.
//
// # Architecture boundaries
//
// This package owns token persistence and expiry arithmetic. It decodes
// tokens only to read exp; it does NOT refresh tokens, talk to the API, or
// evaluate permissions.
//
// # What this package must NOT do
//
//   - Import goAuthClient, transport, or api (no upward imports).
//   - Return an error from expiry checks; malformed tokens are simply expired.
//   - Expose a partially written pair to concurrent readers.
package tokenstore
