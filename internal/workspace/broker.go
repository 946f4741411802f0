package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"folio/internal/logging"
)

const writeTimeout = 5 * time.Second

// Broker fans workspace events out to connected WebSocket clients. All writes
// run on a single goroutine fed by a buffered channel: executors settle
// concurrently, but a websocket connection tolerates only one writer. A client
// whose write fails is dropped; a slow UI must never stall the queue.
type Broker struct {
	logger *slog.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewBroker starts the broker's writer goroutine. eventBuffer sizes the
// outbound queue; values below one are raised to one.
func NewBroker(logger *slog.Logger, eventBuffer int) *Broker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if eventBuffer < 1 {
		eventBuffer = 1
	}
	b := &Broker{
		logger: logging.NewComponentLogger(logger, "workspace"),
		conns:  make(map[*websocket.Conn]struct{}),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Attach registers a client connection.
func (b *Broker) Attach(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.conns[conn] = struct{}{}
}

// Detach removes a client connection. The caller owns closing it.
func (b *Broker) Detach(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, conn)
}

// Subscribers returns the number of attached clients.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Broadcast queues the event for delivery to every attached client. Safe to
// call from any goroutine; after Close it becomes a no-op.
func (b *Broker) Broadcast(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case b.events <- evt:
	case <-b.done:
	}
}

func (b *Broker) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case evt := <-b.events:
			b.write(evt)
		}
	}
}

func (b *Broker) write(evt Event) {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(evt); err != nil {
			b.logger.Debug("dropping event subscriber", logging.Error(err))
			b.Detach(c)
			_ = c.Close()
		}
	}
}

// Close stops the writer goroutine and disconnects all clients. Events still
// buffered are discarded.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.conns = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()

	b.wg.Wait()
	for _, c := range conns {
		_ = c.Close()
	}
}
