package account

import "context"

// Store persists the account record.
//
// Contract:
//   - Load: read the single stored record; returns ErrNotFound if the
//     account has never been created.
//   - Save: write the full record; the write replaces all fields.
//
// All methods must honor context cancellation/timeouts.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, r *Record) error
}
