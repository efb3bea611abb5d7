// Package verify implements the PIN-aware half of the number verification
// flow: submitting a verification code and, when the account carries a
// registration lock, proving PIN ownership through the escrow before
// repeating the call.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlevchenko/signet/internal/pinescrow"
	"github.com/mlevchenko/signet/internal/remote"
)

// ChangeFunc performs the lock-aware remote call: it receives the
// verification code and a registration-lock proof (empty on the first try).
type ChangeFunc func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error)

// Number submits the verification code via change. When the service demands a
// registration-lock proof, the supplied PIN is verified through the escrow
// and the call is repeated with the resulting proof.
//
// Errors: pinescrow.ErrPinLocked when no PIN was supplied but the account is
// locked, or when the escrow refuses further attempts;
// pinescrow.ErrIncorrectPin when the PIN does not match.
func Number(ctx context.Context, code, pin string, escrow pinescrow.Service, change ChangeFunc) (remote.ChangeNumberResult, error) {
	result, err := change(ctx, code, "")
	if !errors.Is(err, remote.ErrRegistrationLock) {
		return result, err
	}

	if pin == "" {
		return remote.ChangeNumberResult{}, pinescrow.ErrPinLocked
	}

	proof, err := escrow.ProveOwnership(ctx, pin)
	if err != nil {
		return remote.ChangeNumberResult{}, err
	}

	result, err = change(ctx, code, proof)
	if errors.Is(err, remote.ErrRegistrationLock) {
		// The escrow accepted the PIN, so a proven call must not be refused
		// again.
		return remote.ChangeNumberResult{}, fmt.Errorf("service refused a proven registration lock: %w", err)
	}
	return result, err
}
