// Package api is the JSON client for the user-management REST backend.
//
// Every call is issued against a base URL plus an endpoint path such as
// "auth/login/". Successful responses arrive wrapped in an envelope
// {data, message, status, timestamp}; [Client] unwraps data into the
// caller's value and returns the rest as [Meta]. Bodies that are not
// wrapped are decoded as-is.
//
// # Errors
//
// Non-2xx responses and transport failures are returned as [*Error], whose
// [Kind] classifies the failure (network, unauthorized, forbidden, not found,
// server, validation, unknown). Each kind unwraps to a sentinel such as
// [ErrValidation] so callers can use errors.Is. The message is flattened from
// the backend's field-error map into one human-readable line.
//
// # Architecture boundaries
//
// Authentication headers, refresh, and retry are the job of the
// [net/http.RoundTripper] chain installed on the underlying http.Client; this
// package only builds requests and interprets responses.
package api
