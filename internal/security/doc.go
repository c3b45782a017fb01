// Package security builds the engine's security report from effective
// configuration and wired collaborators.
//
// # What this package must NOT do
//
//   - Read live state (counters, queues); the report describes policy only.
//   - Import goAlert.
package security
