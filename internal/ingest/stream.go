package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrStreamTruncated reports a response stream that ended before its terminal
// event arrived.
var ErrStreamTruncated = errors.New("ingestion stream ended without terminal event")

// Stream yields ingestion events decoded from an NDJSON response body.
type Stream struct {
	body     io.ReadCloser
	dec      *json.Decoder
	terminal bool
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, dec: json.NewDecoder(body)}
}

// Next returns the next event. After the terminal event it returns io.EOF.
// A stream that ends before delivering a terminal event returns
// ErrStreamTruncated, which callers map to the transport error path.
func (s *Stream) Next() (Event, error) {
	if s.terminal {
		return Event{}, io.EOF
	}
	var evt Event
	if err := s.dec.Decode(&evt); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, ErrStreamTruncated
		}
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := evt.Validate(); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}
	if evt.Terminal() {
		s.terminal = true
	}
	return evt, nil
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	if s == nil || s.body == nil {
		return nil
	}
	return s.body.Close()
}
