// Package flows contains pure-function orchestrators for Engine operations.
//
// [RunDispatch] drives one delivery batch through
// Received → Validating → RateLimitChecked → per contact
// (OwnershipVerified → Sent | Rejected) → Aggregated.
// It accepts a typed dependency struct and returns results without
// side-effects beyond those dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the validator, the authority, channel
// senders, security-event hooks and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAlert (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
