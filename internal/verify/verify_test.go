package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlevchenko/signet/internal/pinescrow"
	"github.com/mlevchenko/signet/internal/remote"
)

type fakeEscrow struct {
	ProveRet string
	ProveErr error

	LastPin    string
	ProveCalls int
}

func (f *fakeEscrow) SetPin(ctx context.Context, pin string, masterKey []byte) error { return nil }
func (f *fakeEscrow) RemovePin(ctx context.Context) error                            { return nil }

func (f *fakeEscrow) ProveOwnership(ctx context.Context, pin string) (string, error) {
	f.ProveCalls++
	f.LastPin = pin
	return f.ProveRet, f.ProveErr
}

func TestNumber_NoLock_SingleCall(t *testing.T) {
	calls := 0
	change := func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
		calls++
		require.Equal(t, "123456", code)
		require.Empty(t, lockProof)
		return remote.ChangeNumberResult{Number: "+15559999"}, nil
	}

	escrow := &fakeEscrow{}
	res, err := Number(context.Background(), "123456", "", escrow, change)
	require.NoError(t, err)
	require.Equal(t, "+15559999", res.Number)
	require.Equal(t, 1, calls)
	require.Zero(t, escrow.ProveCalls)
}

func TestNumber_LockedWithoutPin_PinLocked(t *testing.T) {
	change := func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
		return remote.ChangeNumberResult{}, remote.ErrRegistrationLock
	}

	_, err := Number(context.Background(), "123456", "", &fakeEscrow{}, change)
	require.ErrorIs(t, err, pinescrow.ErrPinLocked)
}

func TestNumber_LockedWithPin_RetriesWithProof(t *testing.T) {
	var proofs []string
	change := func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
		proofs = append(proofs, lockProof)
		if lockProof == "" {
			return remote.ChangeNumberResult{}, remote.ErrRegistrationLock
		}
		return remote.ChangeNumberResult{Number: "+15559999"}, nil
	}

	escrow := &fakeEscrow{ProveRet: "proof-1"}
	res, err := Number(context.Background(), "123456", "0000", escrow, change)
	require.NoError(t, err)
	require.Equal(t, "+15559999", res.Number)
	require.Equal(t, []string{"", "proof-1"}, proofs)
	require.Equal(t, "0000", escrow.LastPin)
}

func TestNumber_IncorrectPinPropagates(t *testing.T) {
	change := func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
		return remote.ChangeNumberResult{}, remote.ErrRegistrationLock
	}

	escrow := &fakeEscrow{ProveErr: pinescrow.ErrIncorrectPin}
	_, err := Number(context.Background(), "123456", "9999", escrow, change)
	require.ErrorIs(t, err, pinescrow.ErrIncorrectPin)
}

func TestNumber_EscrowLockedPropagates(t *testing.T) {
	change := func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
		return remote.ChangeNumberResult{}, remote.ErrRegistrationLock
	}

	escrow := &fakeEscrow{ProveErr: pinescrow.ErrPinLocked}
	_, err := Number(context.Background(), "123456", "0000", escrow, change)
	require.ErrorIs(t, err, pinescrow.ErrPinLocked)
}

func TestNumber_TransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	change := func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
		return remote.ChangeNumberResult{}, boom
	}

	_, err := Number(context.Background(), "123456", "0000", &fakeEscrow{}, change)
	require.ErrorIs(t, err, boom)
}
