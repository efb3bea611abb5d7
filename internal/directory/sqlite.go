package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mlevchenko/signet/internal/dbx"
)

// SQLiteStore keeps the directory in the recipients table. Self resolution
// runs in a transaction so a crash cannot leave two self rows behind.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) ResolveSelfTrusted(ctx context.Context, addr Address) error {
	if addr.IsZero() {
		return fmt.Errorf("self address has no identifiers")
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var serviceID any
		if addr.ServiceID != uuid.Nil {
			serviceID = addr.ServiceID.String()
		}

		if _, err := tx.ExecContext(ctx, `UPDATE recipients SET is_self = 0 WHERE is_self = 1`); err != nil {
			return fmt.Errorf("failed to clear self flag: %w", err)
		}

		// The number may still be attached to another account's row, for
		// example after its previous owner gave it up. Strip it there so the
		// self entry can claim it. The stable id is the row's identity, so a
		// number match alone never merges such a row.
		if addr.Number != "" && serviceID != nil {
			_, err := tx.ExecContext(ctx, `
				UPDATE recipients SET number = NULL
				WHERE number = ? AND service_id IS NOT NULL AND service_id != ?
			`, addr.Number, serviceID)
			if err != nil {
				return fmt.Errorf("failed to release number: %w", err)
			}
		}

		id, err := findSelfRow(ctx, tx, addr.Number, serviceID)
		if err != nil {
			return err
		}

		if id == 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO recipients (number, service_id, trusted, is_self)
				VALUES (?, ?, 1, 1)
			`, nullableNumber(addr.Number), serviceID)
			if err != nil {
				return fmt.Errorf("failed to insert self entry: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE recipients
			SET number = COALESCE(?, number), service_id = COALESCE(?, service_id),
			    trusted = 1, is_self = 1
			WHERE id = ?
		`, nullableNumber(addr.Number), serviceID, id)
		if err != nil {
			return fmt.Errorf("failed to update self entry: %w", err)
		}
		return nil
	})
}

// findSelfRow locates the row to become the self entry: a match on the stable
// service id wins, a number match counts only while the row has no service id
// of its own. Returns 0 when no row qualifies.
func findSelfRow(ctx context.Context, tx dbx.DBTX, number string, serviceID any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM recipients
		WHERE (service_id IS NOT NULL AND service_id = ?)
		   OR (number IS NOT NULL AND number = ? AND (service_id IS NULL OR service_id = ?))
		ORDER BY (service_id IS NOT NULL AND service_id = ?) DESC
		LIMIT 1
	`, serviceID, number, serviceID, serviceID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up self entry: %w", err)
	}
	return id, nil
}

func nullableNumber(number string) any {
	if number == "" {
		return nil
	}
	return number
}
