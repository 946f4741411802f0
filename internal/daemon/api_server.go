package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/queue"
	"folio/internal/services"
	"folio/internal/workspace"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/api/health", srv.handleHealth)
	router.Get("/api/status", srv.handleStatus)
	router.Post("/api/submit", srv.handleSubmit)
	router.Get("/api/queue", srv.handleQueueList)
	router.Post("/api/queue/clear", srv.handleQueueClear)
	router.Get("/api/queue/{id}", srv.handleQueueItem)
	router.Post("/api/queue/{id}/replace", srv.handleReplace)
	router.Delete("/api/queue/{id}", srv.handleRemove)
	router.Get("/api/catalog", srv.handleCatalog)
	router.Get("/ws/events", d.workspace.ServeWS)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SubmitRequest is the POST /api/submit payload. Drafts are keyed by the
// submitted path.
type SubmitRequest struct {
	Paths  []string          `json:"paths"`
	Drafts map[string]string `json:"drafts,omitempty"`
}

// SubmitResponse reports per-path outcomes; a bad path never aborts the
// batch.
type SubmitResponse struct {
	Items  []*workspace.ItemView `json:"items"`
	Errors map[string]string     `json:"errors,omitempty"`
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Paths) == 0 {
		s.respondError(w, http.StatusBadRequest, errors.New("no paths provided"))
		return
	}

	resp := SubmitResponse{}
	for _, path := range req.Paths {
		item, err := s.daemon.manager.Submit(r.Context(), path, req.Drafts[path])
		if err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[path] = err.Error()
			continue
		}
		resp.Items = append(resp.Items, workspace.NewItemView(item))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleQueueList(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			status, ok := queue.ParseStatus(token)
			if !ok {
				s.respondError(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", token))
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]*workspace.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, workspace.NewItemView(item))
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	item, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if item == nil {
		s.respondError(w, http.StatusNotFound, fmt.Errorf("item %d not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, workspace.NewItemView(item))
}

func (s *apiServer) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	item, err := s.daemon.manager.Replace(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, workspace.NewItemView(item))
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.manager.Remove(r.Context(), id); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"removed": id})
}

func (s *apiServer) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.daemon.manager.ClearTerminal(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// CatalogEntryView is the wire form of a catalog entry.
type CatalogEntryView struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id,omitempty"`
	Path        string    `json:"path"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	AddedAt     time.Time `json:"added_at"`
}

func (s *apiServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.daemon.workspace.Catalog(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]CatalogEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, CatalogEntryView{
			ID:          entry.ID,
			ItemID:      entry.ItemID,
			Path:        entry.Path,
			Title:       entry.Title,
			ContentHash: entry.ContentHash,
			SizeBytes:   entry.SizeBytes,
			AddedAt:     entry.AddedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *apiServer) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid item id %q", raw))
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *apiServer) respondError(w http.ResponseWriter, code int, err error) {
	s.respondJSON(w, code, map[string]string{"error": err.Error()})
}
