package cli

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mlevchenko/signet/internal/account"
	"github.com/mlevchenko/signet/internal/config"
	"github.com/mlevchenko/signet/internal/logging"
	"github.com/mlevchenko/signet/internal/transport"
)

// sessionController adapts the websocket session to the manager's transport
// port. After an address change the endpoint credentials are re-derived from
// the record, which the manager has already updated at that point.
type sessionController struct {
	session *transport.Session
	cfg     *config.Config
	record  *account.Record
}

func (c *sessionController) ForceNewSockets() {
	c.session.ForceNewSockets()
}

func (c *sessionController) ResetAfterAddressChange() {
	c.session.ResetAfterAddressChange(c.cfg.SocketURL, authHeader(c.record))
}

// storageSyncer stands in for the remote-storage reconciliation step of an
// identifier change. The service currently re-syncs storage on its own when
// the new sockets connect, so the step only records that a sync was due.
type storageSyncer struct {
	logger logging.Logger
}

func (s *storageSyncer) TriggerSync(ctx context.Context) error {
	s.logger.Debug(ctx, "remote storage sync requested")
	return nil
}

// logNotifier reports confirmed identifier changes to the operator.
type logNotifier struct {
	logger logging.Logger
}

func (n *logNotifier) SelfIdentifiersChanged(number string, serviceID uuid.UUID) {
	n.logger.Info(context.Background(), "self identifiers changed",
		"number", number, "service_id", serviceID)
}

// receiveRecorder stamps the record with the arrival time of every delivered
// message, feeding the staleness check.
func receiveRecorder(ctx context.Context, record *account.Record, store account.Store, logger logging.Logger) transport.MessageHandler {
	return func(payload []byte, received time.Time) {
		record.LastReceiveTimestamp = received
		if err := store.Save(ctx, record); err != nil {
			logger.Error(ctx, "failed to persist receive timestamp", "error", err)
		}
	}
}
