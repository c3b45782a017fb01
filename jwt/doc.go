// Package jwt issues and verifies the bearer tokens that identify the
// sender of an alert request. Ed25519 and HS256 are supported; key
// rotation uses the kid header against a VerifyKeys set.
package jwt
