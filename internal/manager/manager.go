// Package manager orchestrates the lifecycle of one messaging account: it
// keeps the persisted record, the recipient directory, the certificate cache
// and the realtime transport consistent with the remote service's view of the
// account, and owns the ordering rules between them.
//
// The manager performs no internal locking; callers serialize mutating
// operations. Collaborator calls are sequential and synchronous, retry policy
// belongs to the collaborators themselves.
package manager

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/mlevchenko/signet/internal/account"
	"github.com/mlevchenko/signet/internal/devname"
	"github.com/mlevchenko/signet/internal/directory"
	"github.com/mlevchenko/signet/internal/logging"
	"github.com/mlevchenko/signet/internal/pinescrow"
	"github.com/mlevchenko/signet/internal/provision"
	"github.com/mlevchenko/signet/internal/remote"
	"github.com/mlevchenko/signet/internal/verify"
)

// staleAfter is how long without a received message before the account is
// reported as possibly stale.
const staleAfter = 7 * 24 * time.Hour

// Deps bundles the manager's collaborators.
type Deps struct {
	Record    *account.Record
	Store     account.Store
	Service   remote.Service
	Verifier  remote.VerifierFactory
	Escrow    pinescrow.Service
	Directory directory.Store
	Certs     CertRotator
	Transport TransportController
	Syncer    StorageSyncer
	PreKeys   PreKeyRefresher
	Notifier  IdentifierNotifier
	Logger    logging.Logger
}

// Manager implements the account lifecycle operations.
type Manager struct {
	record    *account.Record
	store     account.Store
	svc       remote.Service
	verifier  remote.VerifierFactory
	escrow    pinescrow.Service
	directory directory.Store
	certs     CertRotator
	transport TransportController
	syncer    StorageSyncer
	prekeys   PreKeyRefresher
	notifier  IdentifierNotifier
	logger    logging.Logger

	unregisteredOnce sync.Once
	unregisteredFn   func()
}

func New(d Deps) *Manager {
	return &Manager{
		record:    d.Record,
		store:     d.Store,
		svc:       d.Service,
		verifier:  d.Verifier,
		escrow:    d.Escrow,
		directory: d.Directory,
		certs:     d.Certs,
		transport: d.Transport,
		syncer:    d.Syncer,
		prekeys:   d.PreKeys,
		notifier:  d.Notifier,
		logger:    d.Logger,
	}
}

// SetUnregisteredListener registers the one-shot callback fired when the
// account transitions to unregistered. At most one listener is supported.
func (m *Manager) SetUnregisteredListener(fn func()) {
	m.unregisteredFn = fn
}

// CheckAccountState is the periodic health pass: it reports staleness,
// refills prekeys, fills in a missing service id and pushes the current
// attribute set. An authorization failure anywhere in the sequence is taken
// as proof of deregistration.
func (m *Manager) CheckAccountState(ctx context.Context) error {
	if m.record.LastReceiveTimestamp.IsZero() {
		m.logger.Info(ctx, "no message received yet, this may be a first run")
	} else if since := time.Since(m.record.LastReceiveTimestamp); since > staleAfter {
		m.logger.Warn(ctx, "no message received recently, the account may be stale",
			"last_receive", m.record.LastReceiveTimestamp, "elapsed", since)
	}

	if _, err := m.prekeys.RefreshIfNeeded(ctx); err != nil {
		return m.checkFailed(ctx, err)
	}

	if !m.record.ServiceID.Valid {
		if err := m.CheckWhoAmI(ctx); err != nil {
			return m.checkFailed(ctx, err)
		}
	}

	if err := m.UpdateAccountAttributes(ctx); err != nil {
		return m.checkFailed(ctx, err)
	}
	return nil
}

// checkFailed demotes the account on proof of deregistration and re-raises.
func (m *Manager) checkFailed(ctx context.Context, err error) error {
	if errors.Is(err, remote.ErrUnauthorized) {
		m.logger.Warn(ctx, "service rejected our credentials, marking account unregistered")
		m.markUnregistered(ctx)
	}
	return err
}

// CheckWhoAmI fetches the service's authoritative identifier pair and runs
// the reconciliation pipeline when it differs from the local record.
func (m *Manager) CheckWhoAmI(ctx context.Context) error {
	resp, err := m.svc.WhoAmI(ctx)
	if err != nil {
		return err
	}

	if m.record.ServiceID.Valid &&
		m.record.ServiceID.UUID == resp.ServiceID &&
		m.record.Number == resp.Number {
		return nil
	}
	return m.updateSelfIdentifiers(ctx, resp.Number, resp.ServiceID)
}

// updateSelfIdentifiers applies a confirmed identifier change to every
// dependent subsystem, in dependency order: the record and directory must
// reflect the new identity before certificates are rotated, and both before
// the transport reconnects, since the new sockets use them immediately.
//
// The sequence is not transactional. A failing step aborts the remainder and
// is reported with its name; completed steps stay applied. The next
// reconciliation pass repairs whatever was left behind.
func (m *Manager) updateSelfIdentifiers(ctx context.Context, number string, serviceID uuid.UUID) error {
	m.logger.Info(ctx, "updating self identifiers", "number", number, "service_id", serviceID)

	m.record.Number = number
	m.record.ServiceID = uuid.NullUUID{UUID: serviceID, Valid: true}
	if err := m.store.Save(ctx, m.record); err != nil {
		return m.stepFailed(ctx, "record", err)
	}

	addr := directory.Address{Number: number, ServiceID: serviceID}
	if err := m.directory.ResolveSelfTrusted(ctx, addr); err != nil {
		return m.stepFailed(ctx, "directory", err)
	}

	if err := m.syncer.TriggerSync(ctx); err != nil {
		return m.stepFailed(ctx, "storage-sync", err)
	}

	if err := m.certs.Rotate(ctx); err != nil {
		return m.stepFailed(ctx, "certificates", err)
	}

	m.transport.ResetAfterAddressChange()
	m.transport.ForceNewSockets()

	if m.notifier != nil {
		m.notifier.SelfIdentifiersChanged(number, serviceID)
	}
	return nil
}

func (m *Manager) stepFailed(ctx context.Context, step string, err error) error {
	m.logger.Error(ctx, "identifier update step failed", "step", step, "error", err)
	return fmt.Errorf("identifier update step %s: %w", step, err)
}

// StartChangeNumber begins phase 1 of a number change: it requests a
// verification code for the new number over a scoped unauthenticated client.
func (m *Manager) StartChangeNumber(ctx context.Context, newNumber, captcha string, voice bool) error {
	v := m.verifier(newNumber, m.record.Password)
	return v.RequestVerificationCode(ctx, captcha, voice)
}

// FinishChangeNumber completes phase 2: the code (and PIN, when the account
// carries a registration lock) is verified, then the identifier pipeline runs
// with the new number. The stable service id never changes here.
func (m *Manager) FinishChangeNumber(ctx context.Context, newNumber, code, pin string) error {
	_, err := verify.Number(ctx, code, pin, m.escrow,
		func(ctx context.Context, code, lockProof string) (remote.ChangeNumberResult, error) {
			return m.svc.ChangeNumber(ctx, code, newNumber, lockProof)
		})
	if err != nil {
		return err
	}

	var serviceID uuid.UUID
	if m.record.ServiceID.Valid {
		serviceID = m.record.ServiceID.UUID
	}
	return m.updateSelfIdentifiers(ctx, newNumber, serviceID)
}

// AddDevice authorizes the linking of a new device. The account secrets are
// sealed to the device key from the linking URI; a cryptographically unusable
// key surfaces as remote.ErrInvalidDeviceLink before anything goes on the
// wire. Success flips MultiDevice without requerying the device list.
func (m *Manager) AddDevice(ctx context.Context, link provision.Link) error {
	code, err := m.svc.GetNewDeviceVerificationCode(ctx)
	if err != nil {
		return err
	}

	var serviceID uuid.UUID
	if m.record.ServiceID.Valid {
		serviceID = m.record.ServiceID.UUID
	}
	msg := provision.Message{
		Number:           m.record.Number,
		ServiceID:        serviceID,
		IdentityKeyPair:  m.record.IdentityKeyPair,
		ProfileKey:       m.record.ProfileKey,
		Password:         m.record.Password,
		VerificationCode: code,
	}

	envelope, err := provision.EncryptEnvelope(msg, link.DeviceKey)
	if err != nil {
		if errors.Is(err, provision.ErrInvalidDeviceKey) {
			return remote.ErrInvalidDeviceLink
		}
		return err
	}

	if err := m.svc.AddDevice(ctx, link.DeviceID, envelope, code); err != nil {
		return err
	}

	m.record.MultiDevice = true
	return m.store.Save(ctx, m.record)
}

// RemoveLinkedDevice unlinks a device. Removal does not report the remaining
// count, so the device list is requeried to recompute MultiDevice.
func (m *Manager) RemoveLinkedDevice(ctx context.Context, deviceID int) error {
	if err := m.svc.RemoveDevice(ctx, deviceID); err != nil {
		return err
	}

	devices, err := m.svc.GetDevices(ctx)
	if err != nil {
		return err
	}

	m.record.MultiDevice = len(devices) > 1
	return m.store.Save(ctx, m.record)
}

// UpdateAccountAttributes pushes the full current attribute set. Pure forward
// sync, local state is never mutated.
func (m *Manager) UpdateAccountAttributes(ctx context.Context) error {
	attrs := remote.AccountAttributes{
		RegistrationID:                 m.record.RegistrationID,
		FetchesMessages:                true,
		UnrestrictedUnidentifiedAccess: m.record.UnrestrictedUnidentifiedAccess,
		Capabilities:                   remote.DefaultCapabilities,
		DiscoverableByPhoneNumber:      m.record.Discoverable,
		Name:                           m.record.EncryptedDeviceName,
	}
	if m.record.HasRegistrationLock() {
		attrs.RegistrationLock = pinescrow.DeriveRegistrationLock(m.record.PinMasterKey)
	}
	if len(m.record.ProfileKey) > 0 {
		key, err := deriveUnidentifiedAccessKey(m.record.ProfileKey)
		if err != nil {
			return err
		}
		attrs.UnidentifiedAccessKey = key
	}
	return m.svc.SetAccountAttributes(ctx, attrs)
}

// deriveUnidentifiedAccessKey derives the sealed-sender access key from the
// profile key. Peers holding the profile key derive the same value.
func deriveUnidentifiedAccessKey(profileKey []byte) ([]byte, error) {
	key := make([]byte, 16)
	r := hkdf.New(sha256.New, profileKey, nil, []byte("unidentified access"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive unidentified access key: %w", err)
	}
	return key, nil
}

// SetRegistrationPin escrows the PIN remotely, then persists it locally. The
// local record must not claim a lock the service never accepted, so escrow
// failure leaves the record untouched.
func (m *Manager) SetRegistrationPin(ctx context.Context, pin string) error {
	masterKey := m.record.PinMasterKey
	if len(masterKey) == 0 {
		masterKey = pinescrow.NewMasterKey()
	}

	if err := m.escrow.SetPin(ctx, pin, masterKey); err != nil {
		return err
	}

	m.record.SetRegistrationLockPin(pin, masterKey)
	return m.store.Save(ctx, m.record)
}

// RemoveRegistrationPin removes the escrow entry and clears the local lock
// state. The local clear happens regardless of the escrow outcome; a stale
// local lock would block the owner out of their own account, while a stale
// escrow entry only expires.
func (m *Manager) RemoveRegistrationPin(ctx context.Context) error {
	err := m.escrow.RemovePin(ctx)

	m.record.SetRegistrationLockPin("", nil)
	if serr := m.store.Save(ctx, m.record); serr != nil {
		if err == nil {
			err = serr
		} else {
			m.logger.Error(ctx, "failed to persist pin removal", "error", serr)
		}
	}
	return err
}

// Unregister tells the service to stop delivering messages to this
// registration and marks the account unregistered.
func (m *Manager) Unregister(ctx context.Context) error {
	if err := m.svc.SetPushToken(ctx, ""); err != nil {
		return err
	}
	m.markUnregistered(ctx)
	return nil
}

// DeleteAccount removes the account from the service. The escrow entry is
// removed best-effort first; its failure is logged and swallowed because
// deletion must proceed regardless.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	if err := m.escrow.RemovePin(ctx); err != nil {
		m.logger.Warn(ctx, "failed to remove pin escrow entry, proceeding with deletion", "error", err)
	}
	m.record.SetRegistrationLockPin("", nil)
	if err := m.store.Save(ctx, m.record); err != nil {
		m.logger.Warn(ctx, "failed to persist pin removal, proceeding with deletion", "error", err)
	}

	if err := m.svc.DeleteAccount(ctx); err != nil {
		return err
	}

	m.markUnregistered(ctx)
	return nil
}

// SetDeviceName encrypts and stores the device name. It reaches the service
// with the next attributes push.
func (m *Manager) SetDeviceName(ctx context.Context, name string) error {
	blob, err := devname.Encrypt(name, m.record.IdentityKeyPair)
	if err != nil {
		return err
	}
	m.record.EncryptedDeviceName = blob
	return m.store.Save(ctx, m.record)
}

// markUnregistered flips the one-way registered flag, persists it and fires
// the listener. Safe to call more than once, the listener fires at most once.
func (m *Manager) markUnregistered(ctx context.Context) {
	m.record.Registered = false
	if err := m.store.Save(ctx, m.record); err != nil {
		m.logger.Error(ctx, "failed to persist unregistered state", "error", err)
	}
	m.unregisteredOnce.Do(func() {
		if m.unregisteredFn != nil {
			m.unregisteredFn()
		}
	})
}
