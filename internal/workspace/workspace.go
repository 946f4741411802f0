package workspace

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"folio/internal/bibliography"
	"folio/internal/ingest"
	"folio/internal/logging"
	"folio/internal/queue"
)

const reconcileTimeout = 5 * time.Second

// Workspace reconciles completed uploads into the catalog and relays queue
// changes to connected clients. It is the uploader's notifier.
type Workspace struct {
	store    *queue.Store
	logger   *slog.Logger
	broker   *Broker
	upgrader websocket.Upgrader
}

// New builds the workspace layer on the shared store. eventBuffer sizes the
// broker's outbound event queue.
func New(store *queue.Store, logger *slog.Logger, eventBuffer int) *Workspace {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workspace{
		store:  store,
		logger: logging.NewComponentLogger(logger, "workspace"),
		broker: NewBroker(logger, eventBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ItemUpdated relays a queue item snapshot to all subscribers.
func (w *Workspace) ItemUpdated(item *queue.Item) {
	w.broker.Broadcast(Event{Type: EventItem, Item: NewItemView(item)})
}

// UploadComplete appends the manifest entry to the workspace catalog and
// announces the new document. The bibliography draft stays attached to the
// item; when the archive reports no title, the draft's title fills in, and an
// untitled entry falls back to a title derived from the filename.
func (w *Workspace) UploadComplete(item *queue.Item, entry *ingest.ManifestEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	title := entry.Title
	if title == "" {
		if draft, err := bibliography.Parse(item.DraftJSON); err == nil && draft.Title != "" {
			title = draft.Title
		}
	}
	if title == "" {
		title = bibliography.DeriveTitle(item.DisplayName)
	}

	if _, err := w.store.AddCatalogEntry(ctx, &queue.CatalogEntry{
		ItemID:      item.ID,
		Path:        entry.Path,
		Title:       title,
		ContentHash: entry.ContentHash,
		SizeBytes:   entry.SizeBytes,
	}); err != nil {
		w.logger.Error("reconcile catalog entry",
			logging.Int64("item_id", item.ID),
			logging.String("path", entry.Path),
			logging.Error(err))
		return
	}
	w.logger.Info("document cataloged",
		logging.Int64("item_id", item.ID),
		logging.String("path", entry.Path))

	w.broker.Broadcast(Event{Type: EventUploadComplete, Item: NewItemView(item), Manifest: entry})
}

// Catalog lists the reconciled documents.
func (w *Workspace) Catalog(ctx context.Context) ([]*queue.CatalogEntry, error) {
	return w.store.ListCatalog(ctx)
}

// Subscribers returns the number of connected event clients.
func (w *Workspace) Subscribers() int {
	return w.broker.Subscribers()
}

// Close disconnects all event subscribers.
func (w *Workspace) Close() {
	w.broker.Close()
}
