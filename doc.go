// Package goAlert provides the secure crisis-alert delivery engine: it validates
// and sanitizes a user's message, enforces per-user rate limits, re-verifies
// that every destination belongs to the caller, dispatches over external SMS
// and email gateways with independent per-recipient outcomes, and writes an
// append-only audit trail of every security-relevant action.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goAlert is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (DeliveryResult, SupportContact, AuditLogEntry, etc.). Flow orchestration, validation,
// rate limiting, and audit dispatch live under internal/ and are never exported.
// Gateways (channel), the remote authority client (authority), notification fan-out
// (notify), PHI encryption (phi) and storage (store/...) are separate packages.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Implement SMS or email transport itself; it calls the configured senders.
//   - Issue end-user credentials. Bearer tokens are verified by the transport layer only.
//   - Import any sub-package that re-imports goAlert (no import cycles).
package goAlert
