// Package rate provides the sliding-window primitives behind every alert
// throttle: an in-memory [Window] used as a defense-in-depth mirror, and a
// Redis-backed [Limiter] that is authoritative across processes.
//
// # Window semantics
//
// Both implementations keep one timestamp per admitted attempt. On each check,
// timestamps older than the window are pruned, and the attempt is admitted iff
// fewer than max timestamps remain. Rejected attempts are not recorded.
//
// The Redis limiter keeps timestamps in a sorted set and performs the prune,
// count and insert in a single Lua script, so concurrent callers for the same
// key never over-admit.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the goAlert module.
package rate
