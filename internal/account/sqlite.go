package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mlevchenko/signet/internal/dbx"
)

// ErrNotFound is returned by Load when no account has been created yet.
var ErrNotFound = errors.New("account not found")

// SQLiteStore keeps the account record in a single-row table.
type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	var (
		r           Record
		serviceID   sql.NullString
		lastReceive int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT number, service_id, identity_key_pair, profile_key,
		       pin, pin_master_key, password, registration_id,
		       registered, multi_device, discoverable, unrestricted_ua,
		       encrypted_device_name, last_receive_ms
		FROM account WHERE id = 1
	`).Scan(&r.Number, &serviceID, &r.IdentityKeyPair, &r.ProfileKey,
		&r.Pin, &r.PinMasterKey, &r.Password, &r.RegistrationID,
		&r.Registered, &r.MultiDevice, &r.Discoverable, &r.UnrestrictedUnidentifiedAccess,
		&r.EncryptedDeviceName, &lastReceive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if serviceID.Valid {
		id, err := uuid.Parse(serviceID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored service id: %w", err)
		}
		r.ServiceID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if lastReceive != 0 {
		r.LastReceiveTimestamp = time.UnixMilli(lastReceive)
	}

	return &r, nil
}

func (s *SQLiteStore) Save(ctx context.Context, r *Record) error {
	var serviceID any
	if r.ServiceID.Valid {
		serviceID = r.ServiceID.UUID.String()
	}
	var lastReceive int64
	if !r.LastReceiveTimestamp.IsZero() {
		lastReceive = r.LastReceiveTimestamp.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (id, number, service_id, identity_key_pair, profile_key,
		                     pin, pin_master_key, password, registration_id,
		                     registered, multi_device, discoverable, unrestricted_ua,
		                     encrypted_device_name, last_receive_ms)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			service_id = excluded.service_id,
			identity_key_pair = excluded.identity_key_pair,
			profile_key = excluded.profile_key,
			pin = excluded.pin,
			pin_master_key = excluded.pin_master_key,
			password = excluded.password,
			registration_id = excluded.registration_id,
			registered = excluded.registered,
			multi_device = excluded.multi_device,
			discoverable = excluded.discoverable,
			unrestricted_ua = excluded.unrestricted_ua,
			encrypted_device_name = excluded.encrypted_device_name,
			last_receive_ms = excluded.last_receive_ms
	`, r.Number, serviceID, r.IdentityKeyPair, r.ProfileKey,
		r.Pin, r.PinMasterKey, r.Password, r.RegistrationID,
		r.Registered, r.MultiDevice, r.Discoverable, r.UnrestrictedUnidentifiedAccess,
		r.EncryptedDeviceName, lastReceive)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}
