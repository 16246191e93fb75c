// Package prometheus exposes goAuthClient metrics through client_golang.
//
// [NewExporter] wraps a [goAuthClient.Manager] in a [prometheus.Collector]
// that reads [goAuthClient.Manager.MetricsSnapshot] on every scrape. Counters
// are named authclient_*_total; the request latency histogram is
// authclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry. The exporter owns a
//     private registry and callers mount [Exporter.Handler].
//   - Mutate Manager state.
package prometheus
