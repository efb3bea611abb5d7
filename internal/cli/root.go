// Package cli wires the command tree: it loads configuration, opens the
// local database and assembles the lifecycle manager with its collaborators.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlevchenko/signet/internal/account"
	"github.com/mlevchenko/signet/internal/certs"
	"github.com/mlevchenko/signet/internal/config"
	"github.com/mlevchenko/signet/internal/directory"
	"github.com/mlevchenko/signet/internal/logging"
	"github.com/mlevchenko/signet/internal/manager"
	"github.com/mlevchenko/signet/internal/pinescrow"
	"github.com/mlevchenko/signet/internal/prekeys"
	"github.com/mlevchenko/signet/internal/remote"
	"github.com/mlevchenko/signet/internal/storage"
	"github.com/mlevchenko/signet/internal/transport"
)

type app struct {
	cfg     *config.Config
	logger  logging.Logger
	db      *sql.DB
	record  *account.Record
	store   account.Store
	svc     *remote.HTTPClient
	session *transport.Session
	mgr     *manager.Manager
}

var appCtx *app

// ExecuteContext runs the command tree. The context carries process-level
// cancellation (signals) into every command.
func ExecuteContext(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "signet",
		Short:        "Manage a messaging account's identity and session lifecycle",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := logging.NewSlogLogger(slog.New(
				slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			var err error
			appCtx, err = buildApp(cmd.Context(), logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx != nil && appCtx.db != nil {
				_ = appCtx.db.Close()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		checkCmd(), watchCmd(), devicesCmd(), pinCmd(), numberCmd(),
		setDeviceNameCmd(), unregisterCmd(), deleteAccountCmd(),
	)
	return root.ExecuteContext(ctx)
}

func buildApp(ctx context.Context, logger logging.Logger) (*app, error) {
	cfg := config.LoadConfig()

	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	store := account.NewSQLiteStore(db)
	record, err := store.Load(ctx)
	if err != nil {
		_ = db.Close()
		if errors.Is(err, account.ErrNotFound) {
			return nil, fmt.Errorf("no account found in %s, register one first", cfg.DatabasePath)
		}
		return nil, err
	}

	svc := remote.NewHTTPClient(cfg.ServiceURL, cfg.RequestTimeout, record.Number, record.Password)
	escrow := pinescrow.NewHTTPClient(cfg.ServiceURL, cfg.RequestTimeout, record.Number, record.Password)

	session := transport.NewSession(cfg.SocketURL, authHeader(record), logger,
		receiveRecorder(ctx, record, store, logger))

	mgr := manager.New(manager.Deps{
		Record:    record,
		Store:     store,
		Service:   svc,
		Verifier: func(number, password string) remote.VerificationService {
			return remote.NewVerificationClient(cfg.ServiceURL, cfg.RequestTimeout, number, password)
		},
		Escrow:    escrow,
		Directory: directory.NewSQLiteStore(db),
		Certs:     certs.NewCache(svc),
		Transport: &sessionController{session: session, cfg: cfg, record: record},
		Syncer:    &storageSyncer{logger: logger},
		PreKeys:   prekeys.NewRefresher(svc, prekeys.NewSQLiteStore(db), logger),
		Notifier:  &logNotifier{logger: logger},
		Logger:    logger,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		record:  record,
		store:   store,
		svc:     svc,
		session: session,
		mgr:     mgr,
	}, nil
}

func authHeader(record *account.Record) http.Header {
	h := http.Header{}
	req := &http.Request{Header: h}
	req.SetBasicAuth(record.Number, record.Password)
	return h
}
