package queue_test

import (
	"testing"

	"folio/internal/queue"
)

func TestParseStatus(t *testing.T) {
	status, ok := queue.ParseStatus("  Uploading ")
	if !ok || status != queue.StatusUploading {
		t.Fatalf("expected uploading, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
	if _, ok := queue.ParseStatus(""); ok {
		t.Fatal("expected empty status to fail")
	}
}

func TestSetTransferProgressIsMonotonic(t *testing.T) {
	item := queue.Item{Status: queue.StatusUploading}

	item.SetTransferProgress("hashing", 40)
	if item.Status != queue.StatusProcessing {
		t.Fatalf("expected processing after progress event, got %s", item.Status)
	}
	if item.ProgressPercent != 40 || item.ProgressPhase != "hashing" {
		t.Fatalf("unexpected progress state: %d %q", item.ProgressPercent, item.ProgressPhase)
	}

	// A stale lower percent must not move the bar backwards.
	item.SetTransferProgress("indexing", 25)
	if item.ProgressPercent != 40 {
		t.Fatalf("progress regressed to %d", item.ProgressPercent)
	}
	if item.ProgressPhase != "indexing" {
		t.Fatalf("phase should still advance, got %q", item.ProgressPhase)
	}

	item.SetTransferProgress("indexing", 250)
	if item.ProgressPercent != 100 {
		t.Fatalf("expected clamp to 100, got %d", item.ProgressPercent)
	}
}

func TestTerminalFieldsAreExclusive(t *testing.T) {
	item := queue.Item{Status: queue.StatusProcessing, ProgressPercent: 60, ProgressPhase: "storing"}

	item.SetFailed("archive unavailable")
	if item.Status != queue.StatusError || item.TerminalFieldCount() != 1 {
		t.Fatalf("failed item carries %d terminal fields", item.TerminalFieldCount())
	}

	item.SetDuplicate("/library/existing.pdf")
	if item.Status != queue.StatusDuplicate || item.TerminalFieldCount() != 1 {
		t.Fatalf("duplicate item carries %d terminal fields", item.TerminalFieldCount())
	}
	if item.ErrorMessage != "" {
		t.Fatalf("stale error message survived: %q", item.ErrorMessage)
	}

	item.SetComplete(`{"path":"/library/a.pdf"}`)
	if item.Status != queue.StatusComplete || item.TerminalFieldCount() != 1 {
		t.Fatalf("complete item carries %d terminal fields", item.TerminalFieldCount())
	}
	if item.ProgressPercent != 100 || item.ProgressPhase != "" {
		t.Fatalf("complete item has progress %d phase %q", item.ProgressPercent, item.ProgressPhase)
	}
}

func TestResetForRetryClearsAttemptState(t *testing.T) {
	item := queue.Item{
		Status:          queue.StatusDuplicate,
		ProgressPercent: 100,
		DuplicatePath:   "/library/existing.pdf",
		DraftJSON:       `{"title":"Kept"}`,
	}

	item.ResetForRetry(true)
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", item.Status)
	}
	if item.ProgressPercent != 0 || item.TerminalFieldCount() != 0 {
		t.Fatalf("attempt state survived reset: %d%% terminal=%d", item.ProgressPercent, item.TerminalFieldCount())
	}
	if !item.ReplaceRequested {
		t.Fatal("replace flag not recorded")
	}
	if item.DraftJSON == "" {
		t.Fatal("draft must survive a retry")
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, status := range []queue.Status{queue.StatusUploading, queue.StatusProcessing} {
		if !(queue.Item{Status: status}).IsActive() {
			t.Fatalf("%s should be active", status)
		}
		if queue.IsTerminalStatus(status) {
			t.Fatalf("%s should not be terminal", status)
		}
	}
	for _, status := range []queue.Status{queue.StatusComplete, queue.StatusError, queue.StatusDuplicate} {
		if !queue.IsTerminalStatus(status) {
			t.Fatalf("%s should be terminal", status)
		}
		if (queue.Item{Status: status}).IsActive() {
			t.Fatalf("%s should not be active", status)
		}
	}
	if queue.IsTerminalStatus(queue.StatusPending) {
		t.Fatal("pending is not terminal")
	}
}
