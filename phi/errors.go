package phi

import (
	"errors"
	"fmt"
)

var (
	// ErrCrypto is the class of every failure in this package.
	ErrCrypto = errors.New("phi crypto error")
	// ErrEncryption reports an encryption failure.
	ErrEncryption = fmt.Errorf("%w: encryption failed", ErrCrypto)
	// ErrDecryption reports malformed ciphertext or a key mismatch.
	ErrDecryption = fmt.Errorf("%w: decryption failed", ErrCrypto)
	// ErrKeyExpired is returned once a session's key has been cleared.
	ErrKeyExpired = fmt.Errorf("%w: key expired", ErrCrypto)
	// ErrNoSession is returned when no live session exists for an id.
	ErrNoSession = fmt.Errorf("%w: no key session", ErrCrypto)
)
