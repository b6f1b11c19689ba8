package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrMissingKey    = errors.New("BROKERAGE_CREDENTIALS_KEY is not set")
	ErrInvalidKey    = errors.New("credentials key must be base64 of 32 bytes")
	ErrDecryptFailed = errors.New("ciphertext could not be decrypted")
)

func parseKey(encoded string) (*[keySize]byte, error) {
	if encoded == "" {
		return nil, ErrMissingKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// EncryptString seals plaintext with the configured key. The result is
// base64(nonce || box).
func EncryptString(plaintext string) (string, error) {
	return EncryptStringWithKey(GetConfig().BrokerageCredentialsKey, plaintext)
}

// DecryptString reverses EncryptString.
func DecryptString(ciphertext string) (string, error) {
	return DecryptStringWithKey(GetConfig().BrokerageCredentialsKey, ciphertext)
}

func EncryptStringWithKey(encodedKey, plaintext string) (string, error) {
	key, err := parseKey(encodedKey)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func DecryptStringWithKey(encodedKey, ciphertext string) (string, error) {
	key, err := parseKey(encodedKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecryptFailed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

// GenerateKey returns a fresh base64 key for BROKERAGE_CREDENTIALS_KEY.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}
