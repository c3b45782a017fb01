package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// sealerSalt separates the sealing key from any session key derived from
// the same secret.
var sealerSalt = []byte("goalert/sealer/v1")

// Sealer encrypts structured values under a fixed server key. It is used
// for columns such as audit details that must be opaque at rest but are
// not tied to a user session.
//
// The AES key is derived once in NewSealer; every Seal draws a fresh
// nonce. Sealed values are base64(nonce || ciphertext+tag).
type Sealer struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewSealer derives the sealing key from key using c's iteration count.
// key is not retained.
func NewSealer(c *Cipher, key Secret) (*Sealer, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil cipher", ErrEncryption)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty sealing key", ErrEncryption)
	}

	derived := Secret(pbkdf2.Key(key, sealerSalt, c.iterations, KeySize, sha256.New))
	defer derived.Zero()

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("%w: new cipher: %v", ErrEncryption, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: new gcm: %v", ErrEncryption, err)
	}
	return &Sealer{aead: aead, rand: c.rand}, nil
}

// Seal marshals v to JSON and encrypts it.
func (s *Sealer) Seal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: marshal: %v", ErrEncryption, err)
	}

	nonce := make([]byte, NonceSize, NonceSize+len(raw)+tagSize)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return "", fmt.Errorf("%w: read nonce: %v", ErrEncryption, err)
	}
	out := s.aead.Seal(nonce, nonce, raw, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts sealed and unmarshals the JSON into out.
func (s *Sealer) Open(sealed string, out any) error {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return fmt.Errorf("%w: decode: %v", ErrDecryption, err)
	}
	if len(raw) < NonceSize+tagSize {
		return fmt.Errorf("%w: payload too short", ErrDecryption)
	}

	plain, err := s.aead.Open(nil, raw[:NonceSize], raw[NonceSize:], nil)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", ErrDecryption)
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", ErrDecryption, err)
	}
	return nil
}
