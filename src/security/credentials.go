package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Venue API credentials are stored encrypted and only decrypted in memory
// right before a live venue client is constructed.

var errInvalidCiphertext = errors.New("invalid ciphertext")

func loadKey() (*[32]byte, error) {
	config := GetConfig()
	if config.VenueCRKey == "" {
		return nil, errors.New("VENUE_CREDENTIALS_KEY not set")
	}
	raw, err := base64.StdEncoding.DecodeString(config.VenueCRKey)
	if err != nil || len(raw) != 32 {
		return nil, errors.New("VENUE_CREDENTIALS_KEY must be 32 bytes base64")
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// EncryptString seals a credential with the configured key.
func EncryptString(plaintext string) (string, error) {
	key, err := loadKey()
	if err != nil {
		return "", err
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a credential sealed by EncryptString.
func DecryptString(ciphertext string) (string, error) {
	key, err := loadKey()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < 24 {
		return "", errInvalidCiphertext
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, key)
	if !ok {
		return "", errInvalidCiphertext
	}
	return string(plaintext), nil
}
