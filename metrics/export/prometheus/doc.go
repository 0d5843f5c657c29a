// Package prometheus renders engine metrics in the Prometheus text
// exposition format without depending on the Prometheus client library.
// The engine's snapshot is small and fixed, so a hand-rendered exposition
// keeps the dependency surface flat.
package prometheus
