// Package certs caches the sender certificate used for sealed delivery. The
// certificate embeds the account's identifiers, so it must be thrown away
// whenever either of them changes.
package certs

import (
	"context"
	"sync"
	"time"
)

// Fetcher is the slice of the remote service the cache needs.
type Fetcher interface {
	GetSenderCertificate(ctx context.Context) ([]byte, error)
}

// certLifetime is how long a fetched certificate is served from the cache.
// The service issues certificates valid for longer, refreshing daily keeps a
// comfortable margin.
const certLifetime = 24 * time.Hour

// Cache hands out the current sender certificate, fetching a fresh one from
// the service when the cached copy is absent or stale. Safe for concurrent
// use.
type Cache struct {
	svc Fetcher
	now func() time.Time

	mu        sync.Mutex
	cert      []byte
	fetchedAt time.Time
}

func NewCache(svc Fetcher) *Cache {
	return &Cache{svc: svc, now: time.Now}
}

// Get returns the cached certificate, fetching one first if needed.
func (c *Cache) Get(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cert != nil && c.now().Sub(c.fetchedAt) < certLifetime {
		return c.cert, nil
	}

	cert, err := c.svc.GetSenderCertificate(ctx)
	if err != nil {
		return nil, err
	}
	c.cert = cert
	c.fetchedAt = c.now()
	return cert, nil
}

// Rotate drops the cached certificate and fetches a replacement carrying the
// account's current identifiers. A fetch failure still leaves the stale
// certificate discarded.
func (c *Cache) Rotate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cert = nil
	c.fetchedAt = time.Time{}

	cert, err := c.svc.GetSenderCertificate(ctx)
	if err != nil {
		return err
	}
	c.cert = cert
	c.fetchedAt = c.now()
	return nil
}
