// Package phi protects sensitive personal content at rest.
//
// # Components
//
//   - [Cipher] — PBKDF2-HMAC-SHA256 key derivation + AES-256-GCM. Every call
//     draws a fresh 16-byte salt and 12-byte nonce; the stored form is
//     base64(salt ‖ nonce ‖ ciphertext+tag).
//   - [Session] — a key holder with a sliding inactivity expiry. Every access
//     extends the expiry; an expired or closed session zeroes its key.
//   - [Sessions] — at most one live [Session] per session id.
//   - [EncryptFields] / [DecryptFields] — the field-level policy for records.
//   - [MaskPhone] / [MaskEmail] — lossy display redaction, unrelated to encryption.
//
// All failures wrap [ErrCrypto]. Decrypt never returns partial plaintext.
package phi
