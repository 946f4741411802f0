package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an upload item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
	StatusDuplicate  Status = "duplicate"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploading,
	StatusProcessing,
	StatusComplete,
	StatusError,
	StatusDuplicate,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var activeStatuses = map[Status]struct{}{
	StatusUploading:  {},
	StatusProcessing: {},
}

var terminalStatuses = map[Status]struct{}{
	StatusComplete:  {},
	StatusError:     {},
	StatusDuplicate: {},
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Pending   int
	Active    int
	Complete  int
	Error     int
	Duplicate int
}

// Item represents an upload queue item persisted in SQLite.
//
// At a terminal status exactly one of ErrorMessage, DuplicatePath, and
// ManifestJSON is populated; none are populated before that. DraftJSON is
// user-editable metadata independent of transfer state and survives terminal
// transitions.
type Item struct {
	ID               int64
	SourcePath       string
	DisplayName      string
	SizeBytes        int64
	Status           Status
	ProgressPercent  int
	ProgressPhase    string
	ErrorMessage     string
	Rejected         bool
	DuplicatePath    string
	ManifestJSON     string
	DraftJSON        string
	ReplaceRequested bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsActive returns true when the status reflects an in-flight transfer.
func (i Item) IsActive() bool {
	_, ok := activeStatuses[i.Status]
	return ok
}

// IsTerminal returns true when no further event is expected for this attempt.
func (i Item) IsTerminal() bool {
	return IsTerminalStatus(i.Status)
}

// IsTerminalStatus reports whether a status is one of complete, error, duplicate.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// SetTransferProgress records a streamed progress event. The percent is
// clamped so progress never decreases while a transfer is in flight, and any
// phase-bearing event moves the item to processing: the upload finished and
// server-side work started.
func (i *Item) SetTransferProgress(phase string, percent int) {
	i.Status = StatusProcessing
	i.ProgressPhase = phase
	if percent > 100 {
		percent = 100
	}
	if percent > i.ProgressPercent {
		i.ProgressPercent = percent
	}
}

// SetComplete marks the item complete with its manifest payload.
func (i *Item) SetComplete(manifestJSON string) {
	i.Status = StatusComplete
	i.ProgressPercent = 100
	i.ProgressPhase = ""
	i.ManifestJSON = manifestJSON
	i.ErrorMessage = ""
	i.DuplicatePath = ""
}

// SetDuplicate marks the item as a duplicate of an existing library entry.
func (i *Item) SetDuplicate(existingPath string) {
	i.Status = StatusDuplicate
	i.ProgressPhase = ""
	i.DuplicatePath = existingPath
	i.ErrorMessage = ""
	i.ManifestJSON = ""
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusError
	i.ProgressPhase = ""
	i.ErrorMessage = message
	i.DuplicatePath = ""
	i.ManifestJSON = ""
}

// ResetForRetry returns a terminal item to pending for another attempt.
// Terminal fields from the prior attempt are cleared and progress restarts
// at zero. The bibliography draft is left attached.
func (i *Item) ResetForRetry(replace bool) {
	i.Status = StatusPending
	i.ProgressPercent = 0
	i.ProgressPhase = ""
	i.ErrorMessage = ""
	i.Rejected = false
	i.DuplicatePath = ""
	i.ManifestJSON = ""
	i.ReplaceRequested = replace
}

// TerminalFieldCount returns how many of the mutually exclusive terminal
// fields are populated.
func (i Item) TerminalFieldCount() int {
	count := 0
	if i.ErrorMessage != "" {
		count++
	}
	if i.DuplicatePath != "" {
		count++
	}
	if i.ManifestJSON != "" {
		count++
	}
	return count
}
