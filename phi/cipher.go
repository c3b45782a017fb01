package phi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	MinIterations = 100_000
	SaltSize      = 16
	NonceSize     = 12
	KeySize       = 32
	tagSize       = 16
)

// CipherConfig tunes key derivation. Iterations below MinIterations are raised.
type CipherConfig struct {
	Iterations int
}

// Cipher derives a per-call AES-256 key from a secret and seals with GCM.
type Cipher struct {
	iterations int
	rand       io.Reader
}

// NewCipher returns a Cipher reading salts and nonces from crypto/rand.
func NewCipher(cfg CipherConfig) *Cipher {
	it := cfg.Iterations
	if it < MinIterations {
		it = MinIterations
	}
	return &Cipher{iterations: it, rand: rand.Reader}
}

// Iterations returns the effective PBKDF2 iteration count.
func (c *Cipher) Iterations() int {
	return c.iterations
}

// Encrypt seals plaintext under a key derived from secret.
func (c *Cipher) Encrypt(plaintext string, secret Secret) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrEncryption)
	}

	head := make([]byte, SaltSize+NonceSize)
	if _, err := io.ReadFull(c.rand, head); err != nil {
		return "", fmt.Errorf("%w: read salt: %v", ErrEncryption, err)
	}
	salt, nonce := head[:SaltSize], head[SaltSize:]

	aead, err := c.aead(secret, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	ct := aead.Seal(nil, nonce, []byte(plaintext), nil)
	// Stored as salt || nonce || ciphertext+tag.
	return base64.StdEncoding.EncodeToString(append(head, ct...)), nil
}

// Decrypt opens a value produced by Encrypt. Any tampering, truncation or
// key mismatch yields ErrDecryption.
func (c *Cipher) Decrypt(sealed string, secret Secret) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrDecryption)
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrDecryption, err)
	}
	if len(raw) < SaltSize+NonceSize+tagSize {
		return "", fmt.Errorf("%w: payload too short", ErrDecryption)
	}
	salt := raw[:SaltSize]
	nonce := raw[SaltSize : SaltSize+NonceSize]
	ct := raw[SaltSize+NonceSize:]

	aead, err := c.aead(secret, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	plaintext, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}
	return string(plaintext), nil
}

func (c *Cipher) aead(secret Secret, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(secret, salt, c.iterations, KeySize, sha256.New)
	defer Secret(key).Zero()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %v", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %v", err)
	}
	return aead, nil
}
