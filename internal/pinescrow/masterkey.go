package pinescrow

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

const masterKeySize = 32

// NewMasterKey returns a fresh random 32-byte master key.
func NewMasterKey() []byte {
	key := make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

// DeriveRegistrationLock derives the registration-lock proof sent with
// account attributes and number changes: HMAC-SHA256 of a fixed info string
// under the master key, hex encoded.
func DeriveRegistrationLock(masterKey []byte) string {
	mac := hmac.New(sha256.New, masterKey)
	mac.Write([]byte("Registration Lock"))
	return hex.EncodeToString(mac.Sum(nil))
}

// hashPin stretches the PIN with argon2id so only a hash ever leaves the
// device. The salt is issued by the escrow.
func hashPin(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, 1, 64*1024, 4, 32)
}
