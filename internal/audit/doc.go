// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink] — interface for entry consumers (channel, JSON writer, multi, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Entry] — append-only audit record with outcome, risk level and device info.
//   - [Batcher] — bounded security-event queue with timed flush, immediate
//     flush on critical severity, and half-batch requeue on failure.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which entries
// to emit; that responsibility belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress entries based on business logic.
//   - Import goAlert or any sibling internal package other than internal/device.
//   - Perform network I/O beyond what a caller-supplied Sink or BatchWriter does.
package audit
