// Package encryption seals cached conversation payloads with AES-256-GCM.
// Callers bind each payload to its owner through the additional data, so a
// payload copied under another key fails to open.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ErrMalformed is returned for ciphertext shorter than a nonce.
var ErrMalformed = errors.New("ciphertext too short")

// Sealer encrypts and authenticates payloads.
type Sealer interface {
	Seal(plaintext, additionalData []byte) ([]byte, error)
	Open(ciphertext, additionalData []byte) ([]byte, error)
}

// AESSealer implements Sealer with AES-256-GCM. The output is the nonce
// followed by the sealed data.
type AESSealer struct {
	gcm cipher.AEAD
}

// NewAESSealer creates a sealer from a 32-byte key, given raw or base64.
func NewAESSealer(key string) (*AESSealer, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(keyBytes) != KeySize {
		keyBytes = []byte(key)
	}
	if len(keyBytes) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(keyBytes))
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESSealer{gcm: gcm}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *AESSealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open authenticates and decrypts ciphertext produced by Seal with the same
// additional data.
func (s *AESSealer) Open(ciphertext, additionalData []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrMalformed
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, additionalData)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// GenerateKey returns a random base64-encoded AES-256 key.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// NoOpSealer passes payloads through unchanged. It is used when no
// encryption key is configured.
type NoOpSealer struct{}

// Seal returns a copy of plaintext.
func (NoOpSealer) Seal(plaintext, _ []byte) ([]byte, error) {
	return append([]byte(nil), plaintext...), nil
}

// Open returns a copy of ciphertext.
func (NoOpSealer) Open(ciphertext, _ []byte) ([]byte, error) {
	return append([]byte(nil), ciphertext...), nil
}
