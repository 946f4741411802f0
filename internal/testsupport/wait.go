package testsupport

import (
	"context"
	"testing"
	"time"

	"folio/internal/queue"
)

// WaitForItem polls the store until the item satisfies the condition or the
// deadline passes.
func WaitForItem(t testing.TB, store *queue.Store, id int64, cond func(*queue.Item) bool) *queue.Item {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get item %d: %v", id, err)
		}
		if item != nil && cond(item) {
			return item
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting on item %d (last state: %#v)", id, item)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// WaitForStatus polls until the item reaches the given status.
func WaitForStatus(t testing.TB, store *queue.Store, id int64, status queue.Status) *queue.Item {
	t.Helper()
	return WaitForItem(t, store, id, func(item *queue.Item) bool {
		return item.Status == status
	})
}

// Eventually polls the condition until it holds or the deadline passes.
func Eventually(t testing.TB, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
