package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"folio/internal/config"
	"folio/internal/daemon"
	"folio/internal/ingest"
	"folio/internal/queue"
	"folio/internal/testsupport"
)

type testDaemon struct {
	daemon *daemon.Daemon
	store  *queue.Store
	server *testsupport.ArchiveServer
	cfg    *config.Config
	base   string
}

func startDaemon(t *testing.T, script testsupport.ArchiveScript) *testDaemon {
	t.Helper()

	server := testsupport.NewArchiveServer(t, script)
	cfg := testsupport.NewConfig(t, testsupport.WithArchiveURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	return &testDaemon{
		daemon: d,
		store:  store,
		server: server,
		cfg:    cfg,
		base:   "http://" + d.Addr(),
	}
}

func (td *testDaemon) postJSON(t *testing.T, path string, payload any, out any) int {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(td.base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (td *testDaemon) getJSON(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(td.base + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonSubmitFlow(t *testing.T) {
	td := startDaemon(t, testsupport.CompleteScript("/library"))

	source := filepath.Join(t.TempDir(), "paper.pdf")
	testsupport.WriteFile(t, source, 256)

	var submitResp struct {
		Items []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"items"`
		Errors map[string]string `json:"errors"`
	}
	code := td.postJSON(t, "/api/submit", map[string]any{"paths": []string{source}}, &submitResp)
	if code != http.StatusOK {
		t.Fatalf("submit returned %d", code)
	}
	if len(submitResp.Items) != 1 || len(submitResp.Errors) != 0 {
		t.Fatalf("unexpected submit response: %#v", submitResp)
	}
	id := submitResp.Items[0].ID

	testsupport.WaitForStatus(t, td.store, id, queue.StatusComplete)

	var itemResp struct {
		ID           int64  `json:"id"`
		Status       string `json:"status"`
		ManifestJSON string `json:"manifest_json"`
	}
	if code := td.getJSON(t, fmt.Sprintf("/api/queue/%d", id), &itemResp); code != http.StatusOK {
		t.Fatalf("queue item returned %d", code)
	}
	if itemResp.Status != "complete" || itemResp.ManifestJSON == "" {
		t.Fatalf("unexpected item state: %#v", itemResp)
	}

	var catalogResp struct {
		Entries []struct {
			Path string `json:"path"`
		} `json:"entries"`
	}
	if code := td.getJSON(t, "/api/catalog", &catalogResp); code != http.StatusOK {
		t.Fatalf("catalog returned %d", code)
	}
	if len(catalogResp.Entries) != 1 || catalogResp.Entries[0].Path != "/library/paper.pdf" {
		t.Fatalf("unexpected catalog: %#v", catalogResp)
	}

	var status daemon.Status
	if code := td.getJSON(t, "/api/status", &status); code != http.StatusOK {
		t.Fatalf("status returned %d", code)
	}
	if !status.Running || status.MaxConcurrent != td.cfg.Uploader.MaxConcurrent {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.Queue.Complete != 1 {
		t.Fatalf("expected 1 complete item, got %#v", status.Queue)
	}
}

func TestDaemonReplaceEndpoint(t *testing.T) {
	script := func(req testsupport.ArchiveRequest) []ingest.Event {
		if !req.Replace {
			return []ingest.Event{{
				Type:         ingest.EventDuplicate,
				ContentHash:  "abcd",
				ExistingPath: "/library/existing.pdf",
			}}
		}
		return testsupport.CompleteScript("/library")(req)
	}
	td := startDaemon(t, script)

	source := filepath.Join(t.TempDir(), "paper.pdf")
	testsupport.WriteFile(t, source, 256)

	var submitResp struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	td.postJSON(t, "/api/submit", map[string]any{"paths": []string{source}}, &submitResp)
	id := submitResp.Items[0].ID

	testsupport.WaitForStatus(t, td.store, id, queue.StatusDuplicate)

	if code := td.postJSON(t, fmt.Sprintf("/api/queue/%d/replace", id), nil, nil); code != http.StatusOK {
		t.Fatalf("replace returned %d", code)
	}
	testsupport.WaitForStatus(t, td.store, id, queue.StatusComplete)

	// A second replace must be refused: the item is no longer duplicate or
	// error.
	if code := td.postJSON(t, fmt.Sprintf("/api/queue/%d/replace", id), nil, nil); code != http.StatusConflict {
		t.Fatalf("replace of completed item returned %d", code)
	}
	if code := td.postJSON(t, "/api/queue/9999/replace", nil, nil); code != http.StatusNotFound {
		t.Fatalf("replace of missing item returned %d", code)
	}
}

func TestDaemonRemoveAndClearEndpoints(t *testing.T) {
	td := startDaemon(t, testsupport.CompleteScript("/library"))

	source := filepath.Join(t.TempDir(), "paper.pdf")
	testsupport.WriteFile(t, source, 256)

	var submitResp struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	td.postJSON(t, "/api/submit", map[string]any{"paths": []string{source}}, &submitResp)
	id := submitResp.Items[0].ID
	testsupport.WaitForStatus(t, td.store, id, queue.StatusComplete)

	req, err := http.NewRequest(http.MethodDelete, td.base+fmt.Sprintf("/api/queue/%d", id), nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}

	var clearResp struct {
		Cleared int64 `json:"cleared"`
	}
	if code := td.postJSON(t, "/api/queue/clear", nil, &clearResp); code != http.StatusOK {
		t.Fatalf("clear returned %d", code)
	}
	if clearResp.Cleared != 0 {
		t.Fatalf("expected nothing left to clear, got %d", clearResp.Cleared)
	}
}

func TestDaemonQueueFilter(t *testing.T) {
	td := startDaemon(t, testsupport.CompleteScript("/library"))

	source := filepath.Join(t.TempDir(), "paper.pdf")
	testsupport.WriteFile(t, source, 256)
	var submitResp struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	td.postJSON(t, "/api/submit", map[string]any{"paths": []string{source}}, &submitResp)
	testsupport.WaitForStatus(t, td.store, submitResp.Items[0].ID, queue.StatusComplete)

	var listResp struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	if code := td.getJSON(t, "/api/queue?status=complete", &listResp); code != http.StatusOK {
		t.Fatalf("queue list returned %d", code)
	}
	if len(listResp.Items) != 1 || listResp.Items[0].Status != "complete" {
		t.Fatalf("unexpected filtered list: %#v", listResp)
	}
	if code := td.getJSON(t, "/api/queue?status=bogus", nil); code != http.StatusBadRequest {
		t.Fatalf("bogus status filter returned %d", code)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	td := startDaemon(t, testsupport.CompleteScript("/library"))

	second, err := daemon.New(td.cfg, td.store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon instance acquired the lock")
	}
}

func TestDaemonRecoversStuckItems(t *testing.T) {
	server := testsupport.NewArchiveServer(t, testsupport.CompleteScript("/library"))
	cfg := testsupport.NewConfig(t, testsupport.WithArchiveURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	source := filepath.Join(t.TempDir(), "paper.pdf")
	testsupport.WriteFile(t, source, 256)

	// Simulate a crash mid-transfer: the item was admitted but never settled.
	item, err := store.NewItem(ctx, source, "paper.pdf", 256, "")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	item.SetTransferProgress("storing", 40)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	done := testsupport.WaitForStatus(t, store, item.ID, queue.StatusComplete)
	if done.TerminalFieldCount() != 1 {
		t.Fatalf("recovered item carries %d terminal fields", done.TerminalFieldCount())
	}
}
