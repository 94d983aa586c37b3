// Package permission evaluates whether a token subject holds a named permission.
//
// # Policy
//
// A [Subject] is built from decoded access-token claims. Evaluation order:
//
//   - superusers hold every permission;
//   - staff hold every permission whose name contains "view";
//   - everyone else holds exactly the permissions listed in their token.
//
// [Subject.HasAny] and [Subject.HasAll] quantify the same rule over a list.
//
// # Architecture boundaries
//
// This package is a pure in-memory policy with no I/O. It never decodes tokens;
// callers pass the flags and permission list they already hold.
//
// # What this package must NOT do
//
//   - Access the network, Redis, or the token store.
//   - Import goAuthClient, claims, or tokenstore.
//   - Treat a missing permission list as "all permissions".
package permission
