// Package otel publishes goAuthClient metrics as OpenTelemetry instruments.
//
// [Exporter] is a gateway observer: every finished request adds to the
// authclient.requests counter and the authclient.request.duration histogram,
// labelled with its outcome, method and status code. Once a Manager is
// tracked, a callback reports its session events and dropped audit events on
// each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate Manager state.
package otel
