// Package account defines the locally persisted account record: the snapshot
// of one messaging account's identity, key material and registration flags.
// The record is mutated only by the lifecycle manager and read by many other
// subsystems.
package account

import (
	"time"

	"github.com/google/uuid"
)

// Record is the local authoritative snapshot of one account.
//
// Number and ServiceID, once both known, must match the remote service's view;
// any divergence is repaired by the lifecycle manager's identifier
// reconciliation. Registered is one-way: once false, no further remote-mutating
// operation is attempted outside of explicit re-registration.
type Record struct {
	// Number is the current phone-number-style identifier.
	Number string

	// ServiceID is the service-issued stable account identifier. It is unset
	// until the first successful who-am-i check and never changes afterwards,
	// not even on a number change.
	ServiceID uuid.NullUUID

	IdentityKeyPair []byte
	ProfileKey      []byte

	// Pin and PinMasterKey are set together when a registration lock is
	// active and cleared together when it is removed.
	Pin          string
	PinMasterKey []byte

	Password       string
	RegistrationID uint32

	Registered                     bool
	MultiDevice                    bool
	Discoverable                   bool
	UnrestrictedUnidentifiedAccess bool

	EncryptedDeviceName []byte

	// LastReceiveTimestamp is the time the realtime transport last delivered
	// a message. Zero means no message has ever been received.
	LastReceiveTimestamp time.Time
}

// SetRegistrationLockPin updates the PIN and master key as one unit.
// Passing an empty pin and nil key clears the registration lock.
func (r *Record) SetRegistrationLockPin(pin string, masterKey []byte) {
	r.Pin = pin
	r.PinMasterKey = masterKey
}

// HasRegistrationLock reports whether a PIN master key is present.
func (r *Record) HasRegistrationLock() bool {
	return len(r.PinMasterKey) > 0
}
