// Package pinescrow talks to the server-held PIN escrow: the secret that,
// unlocked only by the correct PIN, proves account ownership during
// re-registration or a number change (the "registration lock").
package pinescrow

import (
	"context"
	"errors"
)

var (
	// ErrIncorrectPin means the escrow rejected the supplied PIN.
	ErrIncorrectPin = errors.New("incorrect pin")

	// ErrPinLocked means too many failed attempts; further guesses are
	// refused for now. Distinct from ErrIncorrectPin.
	ErrPinLocked = errors.New("pin locked")
)

// Service is the PIN escrow contract used by the lifecycle manager.
//
// Contract:
//   - SetPin: register pin and master key with the escrow. The caller must
//     not persist the pair locally until this succeeds.
//   - RemovePin: delete the escrow entry.
//   - ProveOwnership: verify pin against the escrow and return the
//     registration-lock proof derived from the escrowed master key.
type Service interface {
	SetPin(ctx context.Context, pin string, masterKey []byte) error
	RemovePin(ctx context.Context) error
	ProveOwnership(ctx context.Context, pin string) (string, error)
}
