// Package prekeys tops up the pool of one-time prekeys held by the service.
// Each prekey is an X25519 public key; peers consume one to open a session
// while this client is offline.
package prekeys

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"github.com/mlevchenko/signet/internal/logging"
	"github.com/mlevchenko/signet/internal/remote"
)

const (
	// refreshThreshold is the pool size below which a refill is triggered.
	refreshThreshold = 10

	// batchSize is how many prekeys one refill uploads.
	batchSize = 100
)

// Uploader is the slice of the remote service the refresher needs.
type Uploader interface {
	GetPreKeyCount(ctx context.Context) (int, error)
	UploadPreKeys(ctx context.Context, keys []remote.PreKey) error
}

// PreKeyRecord pairs an uploaded prekey with its locally held private key.
type PreKeyRecord struct {
	ID         uint32
	PublicKey  []byte
	PrivateKey []byte
}

// Store persists generated prekey records and tracks the next free key id.
type Store interface {
	NextPreKeyID(ctx context.Context) (uint32, error)
	SavePreKeys(ctx context.Context, keys []PreKeyRecord) error
}

// Refresher checks the remote pool and refills it when it runs low.
type Refresher struct {
	svc    Uploader
	store  Store
	logger logging.Logger
}

func NewRefresher(svc Uploader, store Store, logger logging.Logger) *Refresher {
	return &Refresher{svc: svc, store: store, logger: logger}
}

// RefreshIfNeeded queries the remaining prekey count and uploads a fresh
// batch when it is below the threshold. Returns the number of keys uploaded.
func (r *Refresher) RefreshIfNeeded(ctx context.Context) (int, error) {
	count, err := r.svc.GetPreKeyCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to query prekey count: %w", err)
	}
	if count >= refreshThreshold {
		return 0, nil
	}
	r.logger.Info(ctx, "prekey pool low, refilling", "remaining", count)

	nextID, err := r.store.NextPreKeyID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate prekey ids: %w", err)
	}

	keys, err := generate(nextID, batchSize)
	if err != nil {
		return 0, err
	}

	// Persist first: an uploaded prekey whose private half is lost would
	// break every session opened with it.
	if err := r.store.SavePreKeys(ctx, keys); err != nil {
		return 0, fmt.Errorf("failed to persist prekeys: %w", err)
	}

	upload := make([]remote.PreKey, len(keys))
	for i, k := range keys {
		upload[i] = remote.PreKey{ID: k.ID, PublicKey: k.PublicKey}
	}
	if err := r.svc.UploadPreKeys(ctx, upload); err != nil {
		return 0, fmt.Errorf("failed to upload prekeys: %w", err)
	}
	return len(keys), nil
}

func generate(firstID uint32, n int) ([]PreKeyRecord, error) {
	keys := make([]PreKeyRecord, 0, n)
	for i := 0; i < n; i++ {
		priv := make([]byte, curve25519.ScalarSize)
		if _, err := rand.Read(priv); err != nil {
			return nil, fmt.Errorf("failed to generate prekey: %w", err)
		}
		pub, err := curve25519.X25519(priv, curve25519.Basepoint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive prekey public key: %w", err)
		}
		keys = append(keys, PreKeyRecord{
			ID:         firstID + uint32(i),
			PublicKey:  pub,
			PrivateKey: priv,
		})
	}
	return keys, nil
}
