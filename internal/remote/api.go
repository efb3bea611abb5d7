// Package remote defines the call contract against the remote identity and
// account service, plus an HTTP adapter implementing it. The lifecycle
// manager only depends on the interfaces; the wire shape is owned by the
// adapter.
package remote

import "context"

// Service is the authenticated contract against the account service.
//
// The service is the final authority over self-identifiers: WhoAmI reports
// the canonical (number, service id) pair and local state must follow it.
// All methods must honor context cancellation/timeouts. No method retries
// internally; retry policy belongs to the caller of the manager.
type Service interface {
	WhoAmI(ctx context.Context) (WhoAmIResponse, error)
	SetAccountAttributes(ctx context.Context, attrs AccountAttributes) error

	// ChangeNumber submits the verification code for newNumber together with
	// the registration-lock proof (empty when the account carries no lock).
	// The result payload is informational; success of the call is the gate.
	ChangeNumber(ctx context.Context, code, newNumber, lockProof string) (ChangeNumberResult, error)

	GetNewDeviceVerificationCode(ctx context.Context) (string, error)

	// AddDevice authorizes the linking of a new device. The envelope is the
	// provisioning message encrypted to the device's public key.
	AddDevice(ctx context.Context, deviceID string, envelope []byte, verificationCode string) error
	RemoveDevice(ctx context.Context, deviceID int) error
	GetDevices(ctx context.Context) ([]DeviceInfo, error)

	// SetPushToken registers the push-notification token. An empty token
	// clears it, which also stops message delivery to this registration.
	SetPushToken(ctx context.Context, token string) error

	DeleteAccount(ctx context.Context) error

	GetSenderCertificate(ctx context.Context) ([]byte, error)

	GetPreKeyCount(ctx context.Context) (int, error)
	UploadPreKeys(ctx context.Context, keys []PreKey) error
}

// VerificationService is the scoped, unauthenticated contract used during
// phase 1 of a number change: it is bound to the candidate number and the
// account's password at construction time.
type VerificationService interface {
	RequestVerificationCode(ctx context.Context, captcha string, voice bool) error
}

// VerifierFactory builds a VerificationService bound to the given number and
// account password.
type VerifierFactory func(number, password string) VerificationService
