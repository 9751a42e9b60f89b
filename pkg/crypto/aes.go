// Package crypto seals configuration secrets, such as search provider API
// keys, with AES-256-GCM so they can live in config files.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a configuration value as sealed.
const SealedPrefix = "enc:"

var (
	// ErrInvalidKeySize the key is not 32 bytes.
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes (256 bits)")
	// ErrInvalidCiphertext the ciphertext is shorter than a nonce.
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
	// ErrDecryptionFailed authentication of the ciphertext failed.
	ErrDecryptionFailed = errors.New("decryption failed: authentication failed")
	// ErrNoKey a sealed value was found but no key is configured.
	ErrNoKey = errors.New("sealed value found but no encryption key is configured")
)

// AESCrypto encrypts with AES-256-GCM. Output is base64(nonce | ciphertext | tag).
type AESCrypto struct {
	aead cipher.AEAD
}

// NewAESCrypto creates the cipher; key must be 32 bytes.
func NewAESCrypto(key []byte) (*AESCrypto, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AESCrypto{aead: aead}, nil
}

// Encrypt returns the base64 ciphertext of plaintext. Empty stays empty.
func (a *AESCrypto) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := a.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Empty stays empty.
func (a *AESCrypto) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	nonceSize := a.aead.NonceSize()
	if len(decoded) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	nonce, encrypted := decoded[:nonceSize], decoded[nonceSize:]
	plaintext, err := a.aead.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// Seal encrypts plaintext and adds SealedPrefix.
func (a *AESCrypto) Seal(plaintext string) (string, error) {
	enc, err := a.Encrypt(plaintext)
	if err != nil || enc == "" {
		return enc, err
	}
	return SealedPrefix + enc, nil
}

// Reveal returns value unchanged unless it carries SealedPrefix, in which
// case it is decrypted. Safe on a nil receiver for plain values.
func (a *AESCrypto) Reveal(value string) (string, error) {
	if !strings.HasPrefix(value, SealedPrefix) {
		return value, nil
	}
	if a == nil {
		return "", ErrNoKey
	}
	return a.Decrypt(strings.TrimPrefix(value, SealedPrefix))
}
