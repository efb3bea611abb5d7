// Package provision builds the encrypted envelope handed to a newly linked
// device. The envelope carries the account secrets the device needs to act as
// a linked endpoint, sealed to the ephemeral public key the device displayed
// in its linking URI.
package provision

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ErrInvalidDeviceKey means the device's public key is not a usable X25519
// point. The linking URI was malformed or tampered with.
var ErrInvalidDeviceKey = errors.New("invalid device public key")

var hkdfInfo = []byte("device provisioning")

// Message is the plaintext provisioning payload.
type Message struct {
	Number           string    `json:"number"`
	ServiceID        uuid.UUID `json:"serviceId"`
	IdentityKeyPair  []byte    `json:"identityKeyPair"`
	ProfileKey       []byte    `json:"profileKey"`
	Password         string    `json:"password"`
	VerificationCode string    `json:"verificationCode"`
}

// EncryptEnvelope seals msg to the device's public key. The envelope layout
// is: 32-byte ephemeral public key, 12-byte nonce, ciphertext.
func EncryptEnvelope(msg Message, deviceKey []byte) ([]byte, error) {
	if len(deviceKey) != curve25519.PointSize {
		return nil, ErrInvalidDeviceKey
	}

	ephPriv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(ephPriv); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive ephemeral public key: %w", err)
	}

	shared, err := curve25519.X25519(ephPriv, deviceKey)
	if err != nil {
		// X25519 rejects low-order points, the key cannot be used.
		return nil, ErrInvalidDeviceKey
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	plaintext, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provisioning message: %w", err)
	}

	envelope := make([]byte, 0, len(ephPub)+len(nonce)+len(plaintext)+aead.Overhead())
	envelope = append(envelope, ephPub...)
	envelope = append(envelope, nonce...)
	return aead.Seal(envelope, nonce, plaintext, nil), nil
}

// DecryptEnvelope is the device-side counterpart of EncryptEnvelope.
func DecryptEnvelope(envelope, devicePriv []byte) (Message, error) {
	if len(devicePriv) != curve25519.ScalarSize {
		return Message{}, ErrInvalidDeviceKey
	}
	if len(envelope) < curve25519.PointSize+chacha20poly1305.NonceSize {
		return Message{}, fmt.Errorf("envelope too short")
	}

	ephPub := envelope[:curve25519.PointSize]
	nonce := envelope[curve25519.PointSize : curve25519.PointSize+chacha20poly1305.NonceSize]
	ciphertext := envelope[curve25519.PointSize+chacha20poly1305.NonceSize:]

	shared, err := curve25519.X25519(devicePriv, ephPub)
	if err != nil {
		return Message{}, ErrInvalidDeviceKey
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return Message{}, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Message{}, fmt.Errorf("failed to open envelope: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(plaintext, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode provisioning message: %w", err)
	}
	return msg, nil
}

func newAEAD(shared []byte) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive envelope key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	return aead, nil
}
