// Package transport maintains the realtime websocket session against the
// service. The lifecycle manager does not read messages itself; it only
// forces the session to reconnect when credentials or identifiers change.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/mlevchenko/signet/internal/logging"
)

// MessageHandler receives every message delivered over the session.
type MessageHandler func(payload []byte, received time.Time)

// Session keeps one websocket connection open, redialing with exponential
// backoff when it drops. Safe for concurrent use.
type Session struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	logger  logging.Logger
	handler MessageHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(url string, header http.Header, logger logging.Logger, handler MessageHandler) *Session {
	return &Session{
		url:     url,
		header:  header,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
		handler: handler,
	}
}

// Start launches the connect-and-read loop. It returns immediately; dial
// failures are retried in the background until Close or ctx cancellation.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	for {
		s.mu.Lock()
		url, header := s.url, s.header
		s.mu.Unlock()

		conn, _, err := s.dialer.DialContext(ctx, url, header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := policy.NextBackOff()
			s.logger.Warn(ctx, "websocket dial failed", "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}
		policy.Reset()

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		if ctx.Err() != nil {
			_ = conn.Close()
			return
		}
		s.logger.Debug(ctx, "websocket connected", "url", url)

		s.readLoop(conn)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.logger.Debug(ctx, "websocket disconnected, redialing")
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}
		if s.handler != nil {
			s.handler(payload, time.Now())
		}
	}
}

// ForceNewSockets drops the current connection; the run loop dials a fresh
// one using the current credentials. A no-op while disconnected.
func (s *Session) ForceNewSockets() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// ResetAfterAddressChange points the session at a new endpoint identity and
// reconnects. Used after a number change, when the old session was
// authenticated for an address that no longer exists.
func (s *Session) ResetAfterAddressChange(url string, header http.Header) {
	s.mu.Lock()
	s.url = url
	s.header = header
	s.mu.Unlock()
	s.ForceNewSockets()
}

// Close stops the session and waits for the run loop to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("session not started")
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	return nil
}
