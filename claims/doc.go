// Package claims decodes access-token payloads on the client side.
//
// The client never holds the server's signing key, so decoding here is
// unverified: it reads the payload the backend issued and exposes the
// identity, expiry, and authorization fields used for expiry checks and
// route guarding. The backend remains the authority on every request.
//
// # Architecture boundaries
//
// This package owns the [Claims] shape and [Decode]. Permission evaluation is
// delegated to the permission package through [Claims.Policy].
//
// # What this package must NOT do
//
//   - Verify signatures or trust claims for anything beyond client-side UX.
//   - Cache decoded claims (callers decode on demand).
//   - Import goAuthClient or tokenstore.
package claims
