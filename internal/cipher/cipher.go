// Package cipher encrypts and decrypts motto text with a process-wide key.
package cipher

import (
	"errors"
	"fmt"
)

var (
	// ErrDecrypt is returned when a ciphertext is malformed or was produced
	// with a different key.
	ErrDecrypt    = errors.New("decryption failed")
	ErrMissingKey = errors.New("encryption key is empty")
)

// Cipher is a symmetric, authenticated text cipher.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Algorithm names a supported cipher.
type Algorithm string

const (
	// AlgorithmFernet uses Fernet tokens (AES-128-CBC + HMAC-SHA256) with a
	// 32-byte URL-safe base64 key.
	AlgorithmFernet Algorithm = "fernet"
	// AlgorithmChaCha20 uses ChaCha20-Poly1305 keyed by SHA-256 of the key string.
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// New builds the Cipher for alg. An empty alg selects Fernet.
func New(key string, alg Algorithm) (Cipher, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	switch alg {
	case "", AlgorithmFernet:
		return NewFernet(key)
	case AlgorithmChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("unknown cipher algorithm %q", alg)
	}
}
