// Package prometheus exposes goAuthClient metrics through
// prometheus/client_golang.
//
// [Exporter] implements prometheus.Collector. Register it with any registry,
// or mount [Exporter.Handler], which serves it from a private registry.
// Counter names are prefixed goauthclient_ and end in _total; the single
// histogram is goauthclient_request_latency_seconds and is exported only
// when latency histograms are enabled on the Client.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
