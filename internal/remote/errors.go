package remote

import "errors"

var (
	// ErrUnavailable marks transient transport-level failures.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUnauthorized means the service no longer accepts our credentials;
	// the lifecycle manager treats it as proof of deregistration.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCaptchaRequired is returned when a verification-code request is
	// rejected pending a captcha challenge.
	ErrCaptchaRequired = errors.New("captcha required")

	// ErrInvalidDeviceLink marks a device-link request carrying a
	// cryptographically invalid device key.
	ErrInvalidDeviceLink = errors.New("invalid device link")

	// ErrRegistrationLock means the call was refused pending a
	// registration-lock proof; the caller must prove PIN ownership through
	// the escrow and repeat the call with the proof attached.
	ErrRegistrationLock = errors.New("registration lock required")
)
