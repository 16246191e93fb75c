// Package internaldefs holds the metric names, session event labels and
// latency bucket bounds shared by the Prometheus and OTel exporters.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
