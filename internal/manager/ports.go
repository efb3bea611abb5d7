package manager

import (
	"context"

	"github.com/google/uuid"
)

// CertRotator throws away cached sender certificates and fetches replacements
// carrying the account's current identifiers.
type CertRotator interface {
	Rotate(ctx context.Context) error
}

// TransportController lets the manager bounce the realtime session. Stale
// sockets stay bound to the old identity, so every identifier change forces a
// reconnect.
type TransportController interface {
	// ForceNewSockets drops the current connections and redials.
	ForceNewSockets()

	// ResetAfterAddressChange re-derives the session endpoint from the
	// current account state before reconnecting.
	ResetAfterAddressChange()
}

// StorageSyncer reconciles the remote storage service with the local account
// state after an identifier change.
type StorageSyncer interface {
	TriggerSync(ctx context.Context) error
}

// PreKeyRefresher tops up the one-time prekey pool when it runs low. Safe to
// call repeatedly.
type PreKeyRefresher interface {
	RefreshIfNeeded(ctx context.Context) (int, error)
}

// IdentifierNotifier is told about every confirmed self-identifier change,
// after all local subsystems have been updated.
type IdentifierNotifier interface {
	SelfIdentifiersChanged(number string, serviceID uuid.UUID)
}
