package transport

import "errors"

// ErrRefreshFailed is matched by every error produced when a 401 could not be
// recovered by refreshing the session.
var ErrRefreshFailed = errors.New("session refresh failed")

// ErrBodyNotReplayable is returned when a request body cannot be buffered
// for a retry.
var ErrBodyNotReplayable = errors.New("request body cannot be replayed")

// RefreshError reports a failed 401 recovery and carries the refresh cause.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	if e.Err == nil {
		return ErrRefreshFailed.Error()
	}
	return ErrRefreshFailed.Error() + ": " + e.Err.Error()
}

// Unwrap exposes ErrRefreshFailed and the underlying cause.
func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRefreshFailed}
	}
	return []error{ErrRefreshFailed, e.Err}
}
