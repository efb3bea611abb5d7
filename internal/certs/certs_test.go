package certs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	Cert  []byte
	Err   error
	Calls int
}

func (f *fakeFetcher) GetSenderCertificate(ctx context.Context) ([]byte, error) {
	f.Calls++
	return f.Cert, f.Err
}

func TestGet_FetchesOnceAndCaches(t *testing.T) {
	f := &fakeFetcher{Cert: []byte("cert-1")}
	c := NewCache(f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cert, err := c.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, []byte("cert-1"), cert)
	}
	require.Equal(t, 1, f.Calls)
}

func TestGet_RefetchesAfterLifetime(t *testing.T) {
	f := &fakeFetcher{Cert: []byte("cert-1")}
	c := NewCache(f)

	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	now = now.Add(certLifetime + time.Minute)
	f.Cert = []byte("cert-2")

	cert, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("cert-2"), cert)
	require.Equal(t, 2, f.Calls)
}

func TestRotate_ReplacesCachedCertificate(t *testing.T) {
	f := &fakeFetcher{Cert: []byte("cert-1")}
	c := NewCache(f)
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.NoError(t, err)

	f.Cert = []byte("cert-2")
	require.NoError(t, c.Rotate(ctx))

	cert, err := c.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("cert-2"), cert)
	require.Equal(t, 2, f.Calls, "rotate fetched, the following get was served from cache")
}

func TestRotate_FailureStillDropsStaleCertificate(t *testing.T) {
	f := &fakeFetcher{Cert: []byte("cert-1")}
	c := NewCache(f)
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.NoError(t, err)

	f.Err = errors.New("unreachable")
	require.Error(t, c.Rotate(ctx))

	// The stale certificate must not come back once the fetch succeeds again.
	f.Err = nil
	f.Cert = []byte("cert-2")
	cert, err := c.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("cert-2"), cert)
}
