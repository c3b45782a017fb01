// Package internal contains helper utilities that are intentionally private to goAlert,
// including random PHI key-session ids.
//
// # Sub-packages
//
//   - audit — async audit dispatch (Dispatcher + Sink) and security-event Batcher
//   - device — request-header device fingerprinting
//   - flows — pure-function delivery dispatcher
//   - limiters — crisis-alert and support-message rate limiters
//   - logger — zap logger construction
//   - rate — in-memory and Redis sliding-window primitives
//   - security — security report builder
//   - telemetry — opt-in OTLP tracer provider
//   - validate — message sanitizing and phone normalization
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAlert API.
//   - Be imported by any package outside the goAlert module.
package internal
