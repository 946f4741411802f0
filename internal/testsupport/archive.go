package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"folio/internal/ingest"
)

// ArchiveRequest records one upload received by the fake archive service.
type ArchiveRequest struct {
	Filename string
	Replace  bool
	Draft    string
	Size     int64
}

// ArchiveScript decides which events the fake archive streams back for an
// upload. Returning no events produces a truncated stream, which exercises
// the transport error path.
type ArchiveScript func(req ArchiveRequest) []ingest.Event

// ArchiveServer is an httptest-backed stand-in for the archive service's
// streaming ingestion API.
type ArchiveServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []ArchiveRequest
}

// NewArchiveServer starts a fake archive service that answers /api/health and
// streams scripted NDJSON events from /api/ingest.
func NewArchiveServer(t testing.TB, script ArchiveScript) *ArchiveServer {
	t.Helper()

	srv := &ArchiveServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/ingest", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req := ArchiveRequest{
			Replace: r.FormValue("replace") == "true",
			Draft:   r.FormValue("draft"),
		}
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			req.Filename = files[0].Filename
			req.Size = files[0].Size
		}

		srv.mu.Lock()
		srv.requests = append(srv.requests, req)
		srv.mu.Unlock()

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		enc := json.NewEncoder(w)
		for _, evt := range script(req) {
			if err := enc.Encode(evt); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	})

	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Server.Close)
	return srv
}

// Requests returns a copy of the uploads received so far.
func (s *ArchiveServer) Requests() []ArchiveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]ArchiveRequest, len(s.requests))
	copy(cp, s.requests)
	return cp
}

// CompleteScript is a convenience ArchiveScript that reports steady progress
// and completes every upload into the given library directory.
func CompleteScript(libraryDir string) ArchiveScript {
	return func(req ArchiveRequest) []ingest.Event {
		return []ingest.Event{
			{Type: ingest.EventProgress, Phase: "hashing", Percent: 25},
			{Type: ingest.EventProgress, Phase: "indexing", Percent: 80},
			{Type: ingest.EventComplete, Manifest: &ingest.ManifestEntry{
				Path:        libraryDir + "/" + req.Filename,
				ContentHash: "hash-" + req.Filename,
				SizeBytes:   req.Size,
			}},
		}
	}
}
