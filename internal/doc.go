// Package internal holds the helpers private to goAuthClient.
//
// # Sub-packages
//
//   - config — YAML and env configuration for the binaries (cleanenv)
//   - fakeapi — in-process user-management backend for tests, examples, and refresh-storm
//   - flows — pure-function orchestrators for every Client operation
//   - forms — local form validation (validator/v10)
//   - logctx — request-scoped loggers carried in context
//   - redact — rendering of secrets in logs
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthClient API.
//   - Be imported by any package outside the goAuthClient module.
package internal
