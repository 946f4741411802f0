package workspace

import (
	"net/http"

	"folio/internal/logging"
)

// ServeWS upgrades the request to a WebSocket, replays a snapshot of the
// current queue, and streams events until the client disconnects.
func (w *Workspace) ServeWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	items, err := w.store.List(r.Context())
	if err != nil {
		w.logger.Error("snapshot queue for new subscriber", logging.Error(err))
		_ = conn.Close()
		return
	}
	for _, item := range items {
		if err := conn.WriteJSON(Event{Type: EventItem, Item: NewItemView(item)}); err != nil {
			_ = conn.Close()
			return
		}
	}

	w.broker.Attach(conn)
	defer func() {
		w.broker.Detach(conn)
		_ = conn.Close()
	}()

	// Reads only detect disconnect; clients never send payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
