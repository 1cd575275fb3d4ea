package cipher

import (
	"fmt"

	"github.com/fernet/fernet-go"
)

// noTTL disables the token age check; mottos do not expire.
const noTTL = -1

// Fernet implements Cipher with Fernet tokens.
type Fernet struct {
	keys []*fernet.Key
}

// NewFernet decodes a URL-safe base64 Fernet key.
func NewFernet(key string) (*Fernet, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("decode fernet key: %w", err)
	}
	return &Fernet{keys: []*fernet.Key{k}}, nil
}

// GenerateFernetKey returns a fresh encoded Fernet key.
func GenerateFernetKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("generate fernet key: %w", err)
	}
	return k.Encode(), nil
}

// Encrypt returns plaintext as a signed Fernet token.
func (f *Fernet) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), f.keys[0])
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt verifies a Fernet token and returns its message. Tokens never expire.
func (f *Fernet) Decrypt(ciphertext string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), noTTL, f.keys)
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}
