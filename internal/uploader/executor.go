package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"folio/internal/ingest"
	"folio/internal/logging"
	"folio/internal/queue"
	"folio/internal/services"
)

// transportFailureMessage is surfaced on items whose exchange failed before a
// terminal event arrived. The underlying cause goes to the log, not the item:
// half-received protocol errors are not actionable for the user.
const transportFailureMessage = "transfer failed: archive service unavailable"

type executor struct {
	store   *queue.Store
	archive ingest.Uploader
	logger  *slog.Logger
	timeout time.Duration
	notify  func(*queue.Item)
}

// transfer runs one streaming exchange with the archive service and leaves
// the item in a terminal state. State changes are persisted as events arrive;
// persistence failures are logged and the in-memory item still settles.
func (e *executor) transfer(ctx context.Context, item *queue.Item) {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	log := logging.WithContext(ctx, e.logger)
	log.Info("starting transfer",
		logging.String("file", item.DisplayName),
		logging.Int64("size_bytes", item.SizeBytes),
		logging.Bool("replace", item.ReplaceRequested))
	start := time.Now()
	defer func() {
		log.Info("transfer settled",
			logging.String("status", string(item.Status)),
			logging.Duration("elapsed", time.Since(start)))
	}()

	stream, err := e.archive.Upload(ctx, ingest.UploadRequest{
		SourcePath:  item.SourcePath,
		DisplayName: item.DisplayName,
		Replace:     item.ReplaceRequested,
		DraftJSON:   item.DraftJSON,
	})
	if err != nil {
		e.fail(ctx, item, log, "transfer could not start", err)
		return
	}
	defer stream.Close()

	for {
		evt, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.fail(ctx, item, log, "event stream failed", err)
			return
		}
		e.apply(ctx, item, evt, log)
	}

	// The stream enforces a terminal event, so this only fires on protocol
	// violations that slipped past validation.
	if !item.IsTerminal() {
		e.fail(ctx, item, log, "stream ended without terminal event", nil)
	}
}

func (e *executor) apply(ctx context.Context, item *queue.Item, evt ingest.Event, log *slog.Logger) {
	switch evt.Type {
	case ingest.EventProgress:
		item.SetTransferProgress(evt.Phase, evt.Percent)
	case ingest.EventDuplicate:
		item.SetDuplicate(evt.ExistingPath)
		log.Info("archive reported duplicate",
			logging.String("existing_path", evt.ExistingPath),
			logging.String("content_hash", evt.ContentHash))
	case ingest.EventComplete:
		manifest, err := evt.ManifestJSON()
		if err != nil {
			log.Error("complete event carried no usable manifest", logging.Error(err))
			item.SetFailed(transportFailureMessage)
		} else {
			item.SetComplete(manifest)
			log.Info("transfer complete", logging.String("library_path", evt.Manifest.Path))
		}
	case ingest.EventError:
		// Server-reported failures surface verbatim.
		item.SetFailed(evt.Message)
		log.Warn("archive rejected upload",
			logging.String("code", evt.Code),
			logging.String("message", evt.Message))
	}
	e.persist(ctx, item, log)
}

// fail settles the item on the transport-error path. Deadline-driven
// failures are reclassified so log queries can tell a stall from an outage.
func (e *executor) fail(ctx context.Context, item *queue.Item, log *slog.Logger, op string, cause error) {
	if errors.Is(cause, context.DeadlineExceeded) {
		cause = services.Wrap(services.ErrTimeout, "uploader", "transfer", "deadline exceeded", cause)
	}
	log.Error(op, logging.Error(cause))
	item.SetFailed(transportFailureMessage)
	e.persist(ctx, item, log)
}

func (e *executor) persist(ctx context.Context, item *queue.Item, log *slog.Logger) {
	// A deadline that killed the transfer must not also lose the settled
	// state, so persistence runs on a detached context.
	if err := e.store.Update(context.WithoutCancel(ctx), item); err != nil {
		log.Error("persist item state", logging.Error(err))
	}
	if e.notify != nil {
		e.notify(item)
	}
}
