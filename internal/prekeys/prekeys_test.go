package prekeys

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/mlevchenko/signet/internal/logging"
	"github.com/mlevchenko/signet/internal/remote"
)

type fakeUploader struct {
	Count    int
	CountErr error

	UploadErr error
	Uploaded  []remote.PreKey
}

func (f *fakeUploader) GetPreKeyCount(ctx context.Context) (int, error) {
	return f.Count, f.CountErr
}

func (f *fakeUploader) UploadPreKeys(ctx context.Context, keys []remote.PreKey) error {
	f.Uploaded = append(f.Uploaded, keys...)
	return f.UploadErr
}

type memStore struct {
	nextID  uint32
	nextErr error
	saveErr error
	saved   []PreKeyRecord
}

func (m *memStore) NextPreKeyID(ctx context.Context) (uint32, error) {
	if m.nextErr != nil {
		return 0, m.nextErr
	}
	if m.nextID == 0 {
		m.nextID = 1
	}
	return m.nextID, nil
}

func (m *memStore) SavePreKeys(ctx context.Context, keys []PreKeyRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, keys...)
	return nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRefreshIfNeeded_AboveThresholdIsNoop(t *testing.T) {
	svc := &fakeUploader{Count: refreshThreshold}
	store := &memStore{}

	n, err := NewRefresher(svc, store, testLogger()).RefreshIfNeeded(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, svc.Uploaded)
	require.Empty(t, store.saved)
}

func TestRefreshIfNeeded_RefillsLowPool(t *testing.T) {
	svc := &fakeUploader{Count: 3}
	store := &memStore{nextID: 201}

	n, err := NewRefresher(svc, store, testLogger()).RefreshIfNeeded(context.Background())
	require.NoError(t, err)
	require.Equal(t, batchSize, n)
	require.Len(t, store.saved, batchSize)
	require.Len(t, svc.Uploaded, batchSize)

	// Ids are sequential from the allocated start, uploads carry only the
	// public half.
	require.Equal(t, uint32(201), svc.Uploaded[0].ID)
	require.Equal(t, uint32(201+batchSize-1), svc.Uploaded[batchSize-1].ID)
	for i, k := range svc.Uploaded {
		require.Len(t, k.PublicKey, 32)
		require.Equal(t, store.saved[i].PublicKey, k.PublicKey)
	}
}

func TestRefreshIfNeeded_PersistsBeforeUpload(t *testing.T) {
	svc := &fakeUploader{Count: 0}
	store := &memStore{saveErr: errors.New("disk full")}

	_, err := NewRefresher(svc, store, testLogger()).RefreshIfNeeded(context.Background())
	require.Error(t, err)
	require.Empty(t, svc.Uploaded, "nothing may be uploaded when persisting failed")
}

func TestRefreshIfNeeded_CountErrorPropagates(t *testing.T) {
	svc := &fakeUploader{CountErr: remote.ErrUnavailable}

	_, err := NewRefresher(svc, &memStore{}, testLogger()).RefreshIfNeeded(context.Background())
	require.ErrorIs(t, err, remote.ErrUnavailable)
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:prekeystore?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS prekeys (
  key_id INTEGER PRIMARY KEY,
  public_key BLOB NOT NULL,
  private_key BLOB NOT NULL
);
`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM prekeys`)
	require.NoError(t, err)
	return db
}

func TestSQLiteStore_NextPreKeyID(t *testing.T) {
	db := setupDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	id, err := store.NextPreKeyID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), id)

	require.NoError(t, store.SavePreKeys(ctx, []PreKeyRecord{
		{ID: 1, PublicKey: []byte{1}, PrivateKey: []byte{2}},
		{ID: 2, PublicKey: []byte{3}, PrivateKey: []byte{4}},
	}))

	id, err = store.NextPreKeyID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(3), id)
}

func TestSQLiteStore_RejectsDuplicateID(t *testing.T) {
	db := setupDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	rec := []PreKeyRecord{{ID: 7, PublicKey: []byte{1}, PrivateKey: []byte{2}}}
	require.NoError(t, store.SavePreKeys(ctx, rec))
	require.Error(t, store.SavePreKeys(ctx, rec))
}
