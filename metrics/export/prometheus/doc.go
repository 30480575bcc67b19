// Package prometheus renders authflow counters in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [authflow.Orchestrator] and exposes
// an [http.Handler] suitable for mounting on a debug endpoint. Counter
// names are prefixed authflow_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount
//     the Handler.
//   - Mutate orchestrator state.
package prometheus
