// Package fakeapi is an in-process stand-in for the user-management backend.
//
// It speaks the same wire format as the real service: enveloped JSON
// responses, field-keyed validation errors, HS256 access tokens carrying the
// user's flags and permissions, and a raw {access, refresh} body from the
// refresh endpoint. Tests and the demo binaries drive a Client against it
// through httptest.
//
// The server keeps counters for every route so tests can assert how many
// calls actually reached the backend.
package fakeapi
