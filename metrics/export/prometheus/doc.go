// Package prometheus renders goAlert engine metrics in the Prometheus text
// exposition format.
//
// Counters are named goalert_*_total; the one histogram is
// goalert_dispatch_latency_seconds. Dropped audit entries and security
// events are exported as their own counters.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
