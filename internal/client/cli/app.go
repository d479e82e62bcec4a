package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/workledger/internal/client/client"
	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/client/services"
	"github.com/dmitrijs2005/workledger/internal/logging"
)

// syncSession is the part of services.Session the CLI drives.
type syncSession interface {
	GenerateSyncID() (string, error)
	Connect(ctx context.Context, identity string) error
	Disconnect(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	SetMode(ctx context.Context, mode models.SyncMode) error
	SetServerURL(ctx context.Context, raw string) error
	SyncNow(ctx context.Context) (*models.SyncResult, error)
	Status() models.SyncStatus
	Ping(ctx context.Context) error
	Export(ctx context.Context, exp services.Exporter) (string, error)
	Import(ctx context.Context, imp services.Importer, location string) (models.ImportResult, error)
}

// BackupStore writes snapshots and reads them back.
type BackupStore interface {
	services.Exporter
	services.Importer
}

type App struct {
	session syncSession
	entries services.EntryService
	backups BackupStore
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp wires the REPL to stdin/stdout. backups may be nil when backup
// storage is not configured.
func NewApp(session syncSession, entries services.EntryService, backups BackupStore, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	return &App{
		session: session,
		entries: entries,
		backups: backups,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
}

// Run starts the REPL and blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to workledger (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// StartSyncLoop runs a sync cycle every interval while the session is
// connected. A cycle that overlaps a manual one is skipped by the session.
func (a *App) StartSyncLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.session.Status().State != models.StateConnected {
				continue
			}
			res, err := a.session.SyncNow(ctx)
			if err != nil {
				switch {
				case errors.Is(err, services.ErrNotConnected):
				case client.IsRetryable(err):
					a.logger.Debug(ctx, "relay unreachable, will retry", "err", err)
				default:
					a.logger.Warn(ctx, "background sync failed", "err", err)
				}
				continue
			}
			if res != nil && res.Pull.TotalMerged > 0 {
				a.logger.Info(ctx, "background sync merged entries", "count", res.Pull.TotalMerged)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	st := a.session.Status()
	if st.State == models.StateDisconnected && st.SyncID == "" {
		return "(local)"
	}
	return "(" + string(st.State) + ")"
}
