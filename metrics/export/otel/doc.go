// Package otel publishes goAuthClient metrics through an OpenTelemetry
// meter.
//
// Counters become Int64ObservableCounters. The request latency histogram is
// flattened into one cumulative gauge per bucket plus a _count gauge, since a
// snapshot carries bucket counts but no raw samples. Names match the
// Prometheus exporter.
//
// # What this package must NOT do
//
//   - Create a MeterProvider or exporter pipeline; the caller owns both.
//   - Mutate client state.
package otel
