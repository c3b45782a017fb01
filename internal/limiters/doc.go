// Package limiters provides domain-specific rate limiters built on top of the
// internal/rate primitives.
//
// # Limiters
//
//   - [CrisisAlertLimiter] — 3 alerts per user per 5 minutes, key "ca:<user>".
//   - [SupportMessageLimiter] — 10 support messages per user per 15 minutes, key "sm:<user>".
//
// Both limiters fail closed: a nil receiver or an unreachable backend returns
// the limiter's Unavailable error, never nil.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Policy thresholds
// come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goAlert or any sibling internal package except internal/rate.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
