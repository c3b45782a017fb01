// Package otel publishes goAlert engine metrics as OpenTelemetry
// observable instruments. Values are read from the engine snapshot inside
// one registered callback at collection time.
//
// # What this package must NOT do
//
//   - Install a global MeterProvider.
//   - Mutate engine state.
package otel
