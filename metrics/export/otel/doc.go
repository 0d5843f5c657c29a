// Package otel bridges engine metrics into an OpenTelemetry meter via
// observable instruments: values are pulled from the engine snapshot on
// each collection cycle instead of pushed on every operation.
package otel
