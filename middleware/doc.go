// Package middleware holds the HTTP adapters in front of the alert engine.
//
// # Chain
//
//   - [Recover] turns panics into 500 responses and logs them.
//   - [RequestLogger] writes one zap line per request.
//   - [CORS] answers preflight requests and sets origin headers.
//   - [ClientInfo] attaches the caller's IP and device to the context.
//   - [Guard] verifies the bearer token and attaches the user id.
//
// # What this package must NOT do
//
//   - Make delivery, rate-limit or ownership decisions (the engine does).
//   - Log request bodies, phone numbers or messages.
package middleware
