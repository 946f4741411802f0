package testsupport

import (
	"testing"

	"folio/internal/config"
	"folio/internal/queue"
)

// MustOpenStore opens the queue store for the provided config and registers
// cleanup on test completion.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
