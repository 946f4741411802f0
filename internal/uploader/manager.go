package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"folio/internal/config"
	"folio/internal/ingest"
	"folio/internal/logging"
	"folio/internal/queue"
	"folio/internal/services"
)

// Notifier observes queue changes. The workspace layer implements it to
// reconcile completed uploads into the catalog and fan events out to
// connected clients. Implementations must not block.
type Notifier interface {
	// ItemUpdated fires after an item's persisted state changes.
	ItemUpdated(item *queue.Item)
	// UploadComplete fires once per completed transfer with the parsed
	// manifest entry.
	UploadComplete(item *queue.Item, entry *ingest.ManifestEntry)
}

type noopNotifier struct{}

func (noopNotifier) ItemUpdated(*queue.Item)                           {}
func (noopNotifier) UploadComplete(*queue.Item, *ingest.ManifestEntry) {}

// Manager coordinates the upload queue. Every queue mutation funnels through
// it: submissions, the FIFO drain, slot release after a settle, replace,
// remove, and clear. Transfers themselves run on executor goroutines; the
// manager only admits them.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	limiter  *Limiter
	exec     *executor
	logger   *slog.Logger
	notifier Notifier

	// mu serializes drain bookkeeping so two drains cannot admit the same
	// pending item.
	mu      sync.Mutex
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewManager builds the queue coordinator. A nil logger or notifier is
// replaced with a no-op implementation.
func NewManager(cfg *config.Config, store *queue.Store, archive ingest.Uploader, logger *slog.Logger, notifier Notifier) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger = logging.NewComponentLogger(logger, "uploader")

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		store:    store,
		limiter:  NewLimiter(cfg.Uploader.MaxConcurrent),
		logger:   logger,
		notifier: notifier,
		baseCtx:  ctx,
		cancel:   cancel,
	}
	m.exec = &executor{
		store:   store,
		archive: archive,
		logger:  logger,
		timeout: time.Duration(cfg.Uploader.TransferTimeout) * time.Second,
		notify:  notifier.ItemUpdated,
	}
	return m
}

// Submit enqueues one file. Files that fail the extension allow-list become
// terminal error items immediately, carry the Rejected flag, and never enter
// the transfer flow; everything else is inserted pending and a drain runs.
func (m *Manager) Submit(ctx context.Context, sourcePath, draftJSON string) (*queue.Item, error) {
	path := strings.TrimSpace(sourcePath)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "uploader", "submit", "source path is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "uploader", "submit", "resolve source path", err)
	}
	displayName := filepath.Base(abs)

	if !m.cfg.SupportedExtension(displayName) {
		reason := fmt.Sprintf("unsupported file type %q", filepath.Ext(displayName))
		item, err := m.store.NewRejectedItem(ctx, abs, displayName, reason)
		if err != nil {
			return nil, err
		}
		m.logger.Warn("submission rejected",
			logging.Int64("item_id", item.ID),
			logging.String("file", displayName),
			logging.String("reason", reason))
		m.notifier.ItemUpdated(item)
		return item, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "uploader", "submit", "stat source file", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "uploader", "submit", "source path is a directory", nil)
	}

	item, err := m.store.NewItem(ctx, abs, displayName, info.Size(), draftJSON)
	if err != nil {
		return nil, err
	}
	m.logger.Info("submission queued",
		logging.Int64("item_id", item.ID),
		logging.String("file", displayName))
	m.notifier.ItemUpdated(item)

	if err := m.Drain(ctx); err != nil {
		return item, err
	}
	return item, nil
}

// Drain admits pending items in FIFO order until the concurrency ceiling is
// reached. The scan stops at the first admission failure so later items never
// overtake earlier ones.
func (m *Manager) Drain(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}

	pending, err := m.store.PendingInOrder(ctx)
	if err != nil {
		return fmt.Errorf("drain queue: %w", err)
	}
	for _, item := range pending {
		if !m.limiter.TryAdmit() {
			break
		}
		item.Status = queue.StatusUploading
		if err := m.store.Update(ctx, item); err != nil {
			m.limiter.Release()
			return fmt.Errorf("mark item uploading: %w", err)
		}
		m.notifier.ItemUpdated(item)
		m.launch(item)
	}
	return nil
}

func (m *Manager) launch(item *queue.Item) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.onItemSettled(item)
		m.exec.transfer(m.baseCtx, item)
	}()
}

// onItemSettled is the sole re-entry point after a transfer finishes. It
// returns the slot, hands completed manifests to the workspace, and re-drains
// so a waiting item starts immediately.
func (m *Manager) onItemSettled(item *queue.Item) {
	m.limiter.Release()

	if item.Status == queue.StatusComplete {
		entry, err := ingest.ParseManifest(item.ManifestJSON)
		if err != nil {
			m.logger.Error("completed item carries unreadable manifest",
				logging.Int64("item_id", item.ID), logging.Error(err))
		} else {
			m.notifier.UploadComplete(item, entry)
		}
	}

	if err := m.Drain(m.baseCtx); err != nil {
		m.logger.Error("drain after settle", logging.Error(err))
	}
}

// Replace re-enqueues a duplicate or failed item with the overwrite flag set.
// The prior attempt's terminal fields clear and progress restarts at zero;
// the bibliography draft stays attached.
func (m *Manager) Replace(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "uploader", "replace", fmt.Sprintf("item %d not found", id), nil)
	}
	if item.Rejected {
		return nil, services.Wrap(services.ErrValidation, "uploader", "replace", "rejected items cannot be retried", nil)
	}
	if item.Status != queue.StatusDuplicate && item.Status != queue.StatusError {
		return nil, services.Wrap(services.ErrValidation, "uploader", "replace",
			fmt.Sprintf("replace requires a duplicate or error item, not %s", item.Status), nil)
	}

	item.ResetForRetry(true)
	if err := m.store.Update(ctx, item); err != nil {
		return nil, err
	}
	m.logger.Info("item re-enqueued for replace", logging.Int64("item_id", item.ID))
	m.notifier.ItemUpdated(item)

	if err := m.Drain(ctx); err != nil {
		return item, err
	}
	return item, nil
}

// Remove deletes a pending or terminal item. In-flight items are refused;
// the transfer must settle first.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return services.Wrap(services.ErrNotFound, "uploader", "remove", fmt.Sprintf("item %d not found", id), nil)
	}
	if item.IsActive() {
		return services.Wrap(services.ErrValidation, "uploader", "remove", "item has a transfer in flight", nil)
	}
	removed, err := m.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "uploader", "remove", fmt.Sprintf("item %d not found", id), nil)
	}
	m.logger.Info("item removed", logging.Int64("item_id", id))
	return nil
}

// ClearTerminal removes all complete, error, and duplicate items.
func (m *Manager) ClearTerminal(ctx context.Context) (int64, error) {
	cleared, err := m.store.ClearTerminal(ctx)
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		m.logger.Info("terminal items cleared", logging.Int64("count", cleared))
	}
	return cleared, nil
}

// Active returns the number of transfers currently holding a slot.
func (m *Manager) Active() int {
	return m.limiter.Active()
}

// Stop blocks new admissions and waits for in-flight transfers to settle.
// If ctx ends first the remaining transfers are canceled and awaited.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	alreadyStopped := m.stopped
	m.stopped = true
	m.mu.Unlock()
	if alreadyStopped {
		return
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.cancel()
		<-done
	}
	m.cancel()
}
