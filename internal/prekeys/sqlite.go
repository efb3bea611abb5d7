package prekeys

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlevchenko/signet/internal/dbx"
)

// SQLiteStore keeps generated prekey records in the prekeys table.
type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// NextPreKeyID returns one past the highest id ever stored, starting at 1.
// Ids are never reused, the service rejects uploads under a seen id.
func (s *SQLiteStore) NextPreKeyID(ctx context.Context) (uint32, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(key_id) FROM prekeys`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read prekey ids: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return uint32(max.Int64) + 1, nil
}

func (s *SQLiteStore) SavePreKeys(ctx context.Context, keys []PreKeyRecord) error {
	for _, k := range keys {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prekeys (key_id, public_key, private_key) VALUES (?, ?, ?)
		`, k.ID, k.PublicKey, k.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to store prekey %d: %w", k.ID, err)
		}
	}
	return nil
}
