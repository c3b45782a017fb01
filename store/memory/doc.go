// Package memory provides in-process implementations of the goAlert stores.
// They back the example server, the load generator and tests; nothing is
// persisted across restarts.
package memory
