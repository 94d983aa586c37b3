// Package guard gates navigation on session and claims state.
//
// # Guards
//
//   - [Auth] allows a route only while the source reports a live session.
//   - [Admin] additionally requires the staff or superuser claim.
//   - [Permission] additionally requires every named permission.
//
// [RequireAuth], [RequireAdmin] and [RequirePermission] adapt the predicates
// into net/http middleware that answers with 302 Found redirects.
//
// # Architecture boundaries
//
// Guards are pure predicates over an explicit [Source]. Both
// *tokenstore.Store and *goAuthClient.Client satisfy Source.
//
// # What this package must NOT do
//
//   - Perform network I/O or refresh tokens.
//   - Verify token signatures (claims are consumed for routing only).
//   - Mutate session state.
package guard
