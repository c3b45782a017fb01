package phi

import (
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[SECRET]"

// Secret holds key material. Formatting, JSON and text encoding are redacted.
type Secret []byte

// SecretFromString copies in into a new Secret.
func SecretFromString(in string) Secret { return Secret([]byte(in)) }

// String redacts the secret.
func (s Secret) String() string { return redacted }

// Format implements fmt.Formatter so every verb is redacted.
func (s Secret) Format(f fmt.State, c rune) {
	_, _ = io.WriteString(f, redacted)
}

// MarshalJSON redacts the secret.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// MarshalText redacts the secret.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Clone returns an independent copy.
func (s Secret) Clone() Secret {
	out := make(Secret, len(s))
	copy(out, s)
	return out
}

// Zero overwrites the underlying bytes.
func (s Secret) Zero() {
	for i := range s {
		s[i] = 0
	}
}
