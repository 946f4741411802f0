package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"folio/internal/config"
	"folio/internal/ingest"
	"folio/internal/logging"
	"folio/internal/preflight"
	"folio/internal/queue"
	"folio/internal/uploader"
	"folio/internal/workspace"
)

const stopGracePeriod = 30 * time.Second

// Daemon wires the queue store, upload manager, and workspace together and
// enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	manager   *uploader.Manager
	workspace *workspace.Workspace
	archive   *ingest.Client
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status is the daemon's runtime summary.
type Status struct {
	Running         bool                `json:"running"`
	Queue           queue.HealthSummary `json:"queue"`
	ActiveTransfers int                 `json:"active_transfers"`
	MaxConcurrent   int                 `json:"max_concurrent"`
	Subscribers     int                 `json:"subscribers"`
	QueueDBPath     string              `json:"queue_db_path"`
	LockFilePath    string              `json:"lock_file_path"`
	ArchiveURL      string              `json:"archive_url"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	archive, err := ingest.NewClient(cfg.Archive.URL,
		ingest.WithRequestTimeout(time.Duration(cfg.Archive.RequestTimeout)*time.Second))
	if err != nil {
		return nil, err
	}

	ws := workspace.New(store, logger, cfg.Workspace.EventBuffer)
	manager := uploader.NewManager(cfg, store, archive, logger, ws)

	lockPath := filepath.Join(cfg.Paths.LogDir, "foliod.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		manager:   manager,
		workspace: ws,
		archive:   archive,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, recovers orphaned items, runs preflight
// checks, and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another folio daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Items stranded mid-transfer by a previous crash rejoin the queue.
	reset, err := d.store.ResetStuckActive(d.ctx)
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return fmt.Errorf("reset stuck items: %w", err)
	}
	if reset > 0 {
		d.logger.Info("recovered orphaned items", logging.Int64("count", reset))
	}

	for _, result := range preflight.Run(d.ctx, d.cfg, d.archive) {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		} else {
			d.logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		}
	}

	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return err
	}

	d.running.Store(true)
	d.logger.Info("folio daemon started", logging.String("lock", d.lockPath))

	// Pending items persisted from a previous run start immediately.
	if err := d.manager.Drain(d.ctx); err != nil {
		d.logger.Error("initial drain", logging.Error(err))
	}
	return nil
}

// Stop shuts down the API server, waits for in-flight transfers, and
// releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()

	graceCtx, cancel := context.WithTimeout(context.Background(), stopGracePeriod)
	defer cancel()
	d.manager.Stop(graceCtx)

	d.workspace.Close()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("folio daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the API server's listen address, empty until started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status reports the current runtime summary.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:         d.running.Load(),
		Queue:           health,
		ActiveTransfers: d.manager.Active(),
		MaxConcurrent:   d.cfg.Uploader.MaxConcurrent,
		Subscribers:     d.workspace.Subscribers(),
		QueueDBPath:     d.store.Path(),
		LockFilePath:    d.lockPath,
		ArchiveURL:      d.cfg.Archive.URL,
	}, nil
}
