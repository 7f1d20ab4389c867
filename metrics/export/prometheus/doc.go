// Package prometheus provides Prometheus collectors for possecure metrics.
//
// [NewPrometheusExporter] accepts a [possecure.Engine] and exposes an [http.Handler]
// that renders all possecure counters and histograms in Prometheus text exposition
// format. Counter names are prefixed possecure_*_total; the single histogram is
// possecure_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
