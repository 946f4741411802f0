package queue_test

import (
	"context"
	"testing"

	"folio/internal/queue"
	"folio/internal/testsupport"
)

func TestNewItemRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewItem(ctx, "/tmp/incoming/paper.pdf", "paper.pdf", 4096, `{"title":"Paper"}`)
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if item.Status != queue.StatusPending || item.ProgressPercent != 0 {
		t.Fatalf("unexpected initial state: %s %d%%", item.Status, item.ProgressPercent)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Fatal("timestamps not persisted")
	}

	item.SetTransferProgress("hashing", 30)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded == nil {
		t.Fatal("item not found after update")
	}
	if reloaded.Status != queue.StatusProcessing || reloaded.ProgressPercent != 30 || reloaded.ProgressPhase != "hashing" {
		t.Fatalf("unexpected reloaded state: %s %d%% %q", reloaded.Status, reloaded.ProgressPercent, reloaded.ProgressPhase)
	}
	if reloaded.DraftJSON != `{"title":"Paper"}` {
		t.Fatalf("draft not persisted: %q", reloaded.DraftJSON)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	item, err := store.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for missing item, got %#v", item)
	}
}

func TestNewRejectedItem(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewRejectedItem(ctx, "/tmp/incoming/archive.zip", "archive.zip", "unsupported file type")
	if err != nil {
		t.Fatalf("NewRejectedItem failed: %v", err)
	}
	if item.Status != queue.StatusError || !item.Rejected {
		t.Fatalf("rejected item in state %s rejected=%v", item.Status, item.Rejected)
	}
	if item.ErrorMessage != "unsupported file type" {
		t.Fatalf("unexpected reason: %q", item.ErrorMessage)
	}

	pending, err := store.PendingInOrder(ctx)
	if err != nil {
		t.Fatalf("PendingInOrder failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("rejected item leaked into pending set: %d", len(pending))
	}
}

func TestPendingInOrderIsFIFO(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	names := []string{"a.pdf", "b.pdf", "c.pdf"}
	for _, name := range names {
		if _, err := store.NewItem(ctx, "/tmp/"+name, name, 1, ""); err != nil {
			t.Fatalf("NewItem %s failed: %v", name, err)
		}
	}

	pending, err := store.PendingInOrder(ctx)
	if err != nil {
		t.Fatalf("PendingInOrder failed: %v", err)
	}
	if len(pending) != len(names) {
		t.Fatalf("expected %d pending items, got %d", len(names), len(pending))
	}
	for i, item := range pending {
		if item.DisplayName != names[i] {
			t.Fatalf("position %d: expected %s, got %s", i, names[i], item.DisplayName)
		}
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.NewItem(ctx, "/tmp/a.pdf", "a.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if _, err := store.NewItem(ctx, "/tmp/b.pdf", "b.pdf", 1, ""); err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	first.SetFailed("boom")
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	failed, err := store.List(ctx, queue.StatusError)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != first.ID {
		t.Fatalf("unexpected filtered result: %#v", failed)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 items, got %d", len(all))
	}
}

func TestRemove(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewItem(ctx, "/tmp/a.pdf", "a.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}

	removed, err := store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report a deleted row")
	}
	removed, err = store.Remove(ctx, item.ID)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removed {
		t.Fatal("second removal should be a no-op")
	}
}

func TestClearTerminalKeepsActiveItems(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	pending, err := store.NewItem(ctx, "/tmp/pending.pdf", "pending.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	done, err := store.NewItem(ctx, "/tmp/done.pdf", "done.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	done.SetComplete(`{"path":"/library/done.pdf"}`)
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	dup, err := store.NewItem(ctx, "/tmp/dup.pdf", "dup.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	dup.SetDuplicate("/library/original.pdf")
	if err := store.Update(ctx, dup); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cleared, err := store.ClearTerminal(ctx)
	if err != nil {
		t.Fatalf("ClearTerminal failed: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("expected 2 cleared items, got %d", cleared)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != pending.ID {
		t.Fatalf("unexpected survivors: %#v", remaining)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.NewItem(ctx, "/tmp/a.pdf", "a.pdf", 1, ""); err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	active, err := store.NewItem(ctx, "/tmp/b.pdf", "b.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	active.Status = queue.StatusUploading
	if err := store.Update(ctx, active); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed, err := store.NewItem(ctx, "/tmp/c.pdf", "c.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusUploading] != 1 || stats[queue.StatusError] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Active != 1 || health.Error != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestResetStuckActive(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	stuck, err := store.NewItem(ctx, "/tmp/stuck.pdf", "stuck.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	stuck.SetTransferProgress("storing", 55)
	if err := store.Update(ctx, stuck); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	done, err := store.NewItem(ctx, "/tmp/done.pdf", "done.pdf", 1, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	done.SetComplete(`{"path":"/library/done.pdf"}`)
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reset, err := store.ResetStuckActive(ctx)
	if err != nil {
		t.Fatalf("ResetStuckActive failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset item, got %d", reset)
	}

	reloaded, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusPending || reloaded.ProgressPercent != 0 || reloaded.ProgressPhase != "" {
		t.Fatalf("stuck item not reset: %s %d%% %q", reloaded.Status, reloaded.ProgressPercent, reloaded.ProgressPhase)
	}

	terminal, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if terminal.Status != queue.StatusComplete {
		t.Fatalf("terminal item should be untouched, got %s", terminal.Status)
	}
}

func TestCatalogUpsertByPath(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.AddCatalogEntry(ctx, &queue.CatalogEntry{
		ItemID:      7,
		Path:        "/library/paper.pdf",
		Title:       "Paper",
		ContentHash: "aaaa",
		SizeBytes:   100,
	}); err != nil {
		t.Fatalf("AddCatalogEntry failed: %v", err)
	}

	second, err := store.AddCatalogEntry(ctx, &queue.CatalogEntry{
		ItemID:      9,
		Path:        "/library/paper.pdf",
		Title:       "Paper, revised",
		ContentHash: "bbbb",
		SizeBytes:   120,
	})
	if err != nil {
		t.Fatalf("AddCatalogEntry upsert failed: %v", err)
	}
	if second.ContentHash != "bbbb" || second.ItemID != 9 {
		t.Fatalf("upsert did not replace fields: %#v", second)
	}

	entries, err := store.ListCatalog(ctx)
	if err != nil {
		t.Fatalf("ListCatalog failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected single entry after upsert, got %d", len(entries))
	}

	byPath, err := store.CatalogEntryByPath(ctx, "/library/paper.pdf")
	if err != nil {
		t.Fatalf("CatalogEntryByPath failed: %v", err)
	}
	if byPath == nil || byPath.Title != "Paper, revised" {
		t.Fatalf("unexpected entry: %#v", byPath)
	}
}

func TestCatalogUpsertAfterUnrelatedInserts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.AddCatalogEntry(ctx, &queue.CatalogEntry{
		Path:        "/library/a.pdf",
		Title:       "A",
		ContentHash: "aaaa",
		SizeBytes:   100,
	})
	if err != nil || first == nil {
		t.Fatalf("AddCatalogEntry failed: entry=%#v err=%v", first, err)
	}

	// Unrelated inserts move last_insert_rowid on this connection; the upsert
	// below must still report its own row.
	for _, name := range []string{"x.pdf", "y.pdf", "z.pdf"} {
		if _, err := store.NewItem(ctx, "/tmp/"+name, name, 10, ""); err != nil {
			t.Fatalf("NewItem %s failed: %v", name, err)
		}
	}

	updated, err := store.AddCatalogEntry(ctx, &queue.CatalogEntry{
		Path:        "/library/a.pdf",
		Title:       "A, revised",
		ContentHash: "bbbb",
		SizeBytes:   140,
	})
	if err != nil {
		t.Fatalf("AddCatalogEntry upsert failed: %v", err)
	}
	if updated == nil {
		t.Fatal("upsert returned nil entry for an existing path")
	}
	if updated.ID != first.ID || updated.ContentHash != "bbbb" || updated.Title != "A, revised" {
		t.Fatalf("upsert returned wrong row: first=%#v updated=%#v", first, updated)
	}
}
