// Package internaldefs carries the shared metric definitions used by the
// Prometheus and OpenTelemetry exporters. It exists so both exporters emit
// identical names and help text without importing each other.
package internaldefs
