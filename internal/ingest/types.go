package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType identifies a streamed ingestion event.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventDuplicate EventType = "duplicate"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// ManifestEntry is the catalog record the archive service returns for a
// stored document.
type ManifestEntry struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	ContentHash string `json:"content_hash"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Event is one element of the archive service's response stream. A stream is
// zero or more progress events followed by exactly one terminal event
// (duplicate, complete, or error).
type Event struct {
	Type EventType `json:"type"`

	// Progress fields.
	Phase   string `json:"phase,omitempty"`
	Percent int    `json:"percent,omitempty"`

	// Duplicate fields.
	ContentHash  string `json:"content_hash,omitempty"`
	ExistingPath string `json:"existing_path,omitempty"`

	// Complete fields.
	Manifest *ManifestEntry `json:"manifest,omitempty"`

	// Error fields.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventDuplicate, EventComplete, EventError:
		return true
	default:
		return false
	}
}

// Validate checks the event carries the fields its type requires.
func (e Event) Validate() error {
	switch e.Type {
	case EventProgress:
		if e.Percent < 0 || e.Percent > 100 {
			return fmt.Errorf("progress percent %d out of range", e.Percent)
		}
		return nil
	case EventDuplicate:
		if strings.TrimSpace(e.ExistingPath) == "" {
			return fmt.Errorf("duplicate event missing existing_path")
		}
		return nil
	case EventComplete:
		if e.Manifest == nil || strings.TrimSpace(e.Manifest.Path) == "" {
			return fmt.Errorf("complete event missing manifest")
		}
		return nil
	case EventError:
		if strings.TrimSpace(e.Message) == "" {
			return fmt.Errorf("error event missing message")
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %q", string(e.Type))
	}
}

// ManifestJSON renders the manifest entry for persistence on the queue item.
func (e Event) ManifestJSON() (string, error) {
	if e.Manifest == nil {
		return "", fmt.Errorf("event has no manifest")
	}
	data, err := json.Marshal(e.Manifest)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	return string(data), nil
}

// ParseManifest decodes a persisted manifest payload.
func ParseManifest(raw string) (*ManifestEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("manifest payload is empty")
	}
	var entry ManifestEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &entry, nil
}

// UploadRequest describes one streaming exchange with the archive service.
type UploadRequest struct {
	SourcePath  string
	DisplayName string
	// Replace asks the archive to overwrite an existing duplicate instead of
	// reporting it.
	Replace bool
	// DraftJSON carries the bibliography draft alongside the file bytes.
	DraftJSON string
}
