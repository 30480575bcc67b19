// Package otel provides OpenTelemetry metric bindings for authflow
// counters.
//
// [NewOTelExporter] registers one Int64ObservableCounter per authflow
// metric. A single callback reads
// [authflow.Orchestrator.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate orchestrator state.
package otel
