// Package otel exports adminauth metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per login latency bucket. A single callback reads one
// snapshot per collection cycle.
//
// The caller owns the MeterProvider and passes in a Meter.
package otel
