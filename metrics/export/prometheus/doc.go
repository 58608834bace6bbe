// Package prometheus renders session metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] reads a [goTutor.Manager] on every scrape. Counters are named
// tutor_*_total; the two latency histograms are tutor_request_latency_seconds and
// tutor_renew_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate manager state.
package prometheus
