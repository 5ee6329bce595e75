package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2Iterations = 100000

// SealedBackend encrypts values with AES-GCM before handing them to the
// wrapped backend. The key is derived from a passphrase with PBKDF2.
type SealedBackend struct {
	inner Backend
	aead  cipher.AEAD
}

// NewSealedBackend wraps inner. The scope salts the key derivation so the
// same passphrase yields different keys per API endpoint.
func NewSealedBackend(inner Backend, passphrase, scope string) (*SealedBackend, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("session: passphrase is required for encrypted storage")
	}

	salt := []byte("botctl-session:" + scope)
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &SealedBackend{inner: inner, aead: aead}, nil
}

// Load decrypts the stored value. A value that fails authentication is
// reported as an error, not as absent.
func (s *SealedBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := s.inner.Load(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}

	data, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, false, fmt.Errorf("session: decoding %s: %w", key, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, false, fmt.Errorf("session: ciphertext for %s too short", key)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, false, fmt.Errorf("session: decrypting %s: %w", key, err)
	}
	return plaintext, true, nil
}

// Save encrypts value and stores it. The key name is bound as
// additional data so values cannot be swapped between keys.
func (s *SealedBackend) Save(ctx context.Context, key string, value []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}

	sealed := s.aead.Seal(nonce, nonce, value, []byte(key))
	return s.inner.Save(ctx, key, []byte(base64.StdEncoding.EncodeToString(sealed)))
}

// Delete removes key from the wrapped backend.
func (s *SealedBackend) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
