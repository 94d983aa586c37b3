package internaldefs

import (
	client "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one client counter for exporters.
type CounterDef struct {
	ID   client.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram for exporters.
type HistogramDef struct {
	ID   client.MetricID
	Name string
	Help string
}

// EventsDroppedName is the counter exported for dispatcher drops.
const (
	EventsDroppedName = "goauthclient_events_dropped_total"
	EventsDroppedHelp = "Session events dropped due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: client.MetricLoginSuccess, Name: "goauthclient_login_success_total", Help: "Successful logins."},
	{ID: client.MetricLoginFailure, Name: "goauthclient_login_failure_total", Help: "Logins rejected locally or by the backend."},
	{ID: client.MetricRegisterSuccess, Name: "goauthclient_register_success_total", Help: "Accepted registrations."},
	{ID: client.MetricRegisterFailure, Name: "goauthclient_register_failure_total", Help: "Rejected registrations."},
	{ID: client.MetricValidationRejected, Name: "goauthclient_validation_rejected_total", Help: "Forms rejected before any network call."},
	{ID: client.MetricLogout, Name: "goauthclient_logout_total", Help: "User-initiated logouts."},
	{ID: client.MetricForcedLogout, Name: "goauthclient_forced_logout_total", Help: "Sessions ended by an unrecoverable auth failure."},
	{ID: client.MetricRefreshSuccess, Name: "goauthclient_refresh_success_total", Help: "Successful token refreshes."},
	{ID: client.MetricRefreshFailure, Name: "goauthclient_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: client.MetricRefreshShared, Name: "goauthclient_refresh_shared_total", Help: "Callers that joined a refresh already in flight."},
	{ID: client.MetricRefreshProactive, Name: "goauthclient_refresh_proactive_total", Help: "Refreshes started by the background refresher."},
	{ID: client.MetricUnauthorized, Name: "goauthclient_unauthorized_total", Help: "401 responses to requests carrying a token."},
	{ID: client.MetricRetry, Name: "goauthclient_retry_total", Help: "Requests replayed after a refresh."},
	{ID: client.MetricNetworkError, Name: "goauthclient_network_error_total", Help: "Transport failures."},
	{ID: client.MetricForbidden, Name: "goauthclient_forbidden_total", Help: "403 responses."},
	{ID: client.MetricNotFound, Name: "goauthclient_not_found_total", Help: "404 responses."},
	{ID: client.MetricServerError, Name: "goauthclient_server_error_total", Help: "5xx responses."},
	{ID: client.MetricProfileLoaded, Name: "goauthclient_profile_loaded_total", Help: "Successful profile loads."},
	{ID: client.MetricAccountDeleted, Name: "goauthclient_account_deleted_total", Help: "Self-service account deletions."},
}

var HistogramDefs = []HistogramDef{
	{ID: client.MetricRequestLatency, Name: "goauthclient_request_latency_seconds", Help: "API call latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the first seven
// buckets. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// a short or missing histogram.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
