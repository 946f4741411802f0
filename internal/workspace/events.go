package workspace

import (
	"time"

	"folio/internal/ingest"
	"folio/internal/queue"
)

// EventType identifies a workspace broadcast.
type EventType string

const (
	// EventItem carries a queue item snapshot after any state change.
	EventItem EventType = "item"
	// EventUploadComplete fires once per completed upload, after the manifest
	// is reconciled into the catalog.
	EventUploadComplete EventType = "upload_complete"
)

// ItemView is the wire form of a queue item.
type ItemView struct {
	ID               int64     `json:"id"`
	SourcePath       string    `json:"source_path"`
	DisplayName      string    `json:"display_name"`
	SizeBytes        int64     `json:"size_bytes"`
	Status           string    `json:"status"`
	ProgressPercent  int       `json:"progress_percent"`
	ProgressPhase    string    `json:"progress_phase,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Rejected         bool      `json:"rejected,omitempty"`
	DuplicatePath    string    `json:"duplicate_path,omitempty"`
	ManifestJSON     string    `json:"manifest_json,omitempty"`
	DraftJSON        string    `json:"draft_json,omitempty"`
	ReplaceRequested bool      `json:"replace_requested,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewItemView snapshots a queue item for broadcast and API responses.
func NewItemView(item *queue.Item) *ItemView {
	if item == nil {
		return nil
	}
	return &ItemView{
		ID:               item.ID,
		SourcePath:       item.SourcePath,
		DisplayName:      item.DisplayName,
		SizeBytes:        item.SizeBytes,
		Status:           string(item.Status),
		ProgressPercent:  item.ProgressPercent,
		ProgressPhase:    item.ProgressPhase,
		ErrorMessage:     item.ErrorMessage,
		Rejected:         item.Rejected,
		DuplicatePath:    item.DuplicatePath,
		ManifestJSON:     item.ManifestJSON,
		DraftJSON:        item.DraftJSON,
		ReplaceRequested: item.ReplaceRequested,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

// Event is one workspace broadcast.
type Event struct {
	Type      EventType             `json:"type"`
	Item      *ItemView             `json:"item,omitempty"`
	Manifest  *ingest.ManifestEntry `json:"manifest,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}
