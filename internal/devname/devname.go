// Package devname encrypts the human-readable device name before it is sent
// to the service. The service stores the name but must not be able to read
// it, so the key is derived from the account's identity key material, which
// only this client and its linked devices hold.
package devname

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var hkdfInfo = []byte("encrypted device name")

// ErrNoIdentityKey is returned when no identity key material is available to
// derive the name encryption key from.
var ErrNoIdentityKey = errors.New("no identity key material")

// Encrypt seals name under a key derived from the identity key pair. The
// output is nonce || ciphertext.
func Encrypt(name string, identityKeyPair []byte) ([]byte, error) {
	aead, err := newAEAD(identityKeyPair)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(name), nil), nil
}

// Decrypt reverses Encrypt.
func Decrypt(blob, identityKeyPair []byte) (string, error) {
	aead, err := newAEAD(identityKeyPair)
	if err != nil {
		return "", err
	}
	if len(blob) < aead.NonceSize() {
		return "", fmt.Errorf("encrypted name too short")
	}

	name, err := aead.Open(nil, blob[:aead.NonceSize()], blob[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt device name: %w", err)
	}
	return string(name), nil
}

func newAEAD(identityKeyPair []byte) (cipher.AEAD, error) {
	if len(identityKeyPair) == 0 {
		return nil, ErrNoIdentityKey
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, identityKeyPair, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive name key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	return aead, nil
}
