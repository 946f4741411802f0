package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"folio/internal/daemon"
	"folio/internal/workspace"
)

const (
	defaultAPIBind   = "127.0.0.1:7610"
	defaultUserAgent = "folio/0.1"
	requestTimeout   = 30 * time.Second
)

// Client talks to the folio daemon's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// New builds a Client for the provided api_bind host:port value.
func New(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}, nil
}

// Health reports whether the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Status retrieves the daemon's runtime summary.
func (c *Client) Status(ctx context.Context) (*daemon.Status, error) {
	var payload daemon.Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Submit enqueues files for upload. Drafts are keyed by path.
func (c *Client) Submit(ctx context.Context, paths []string, drafts map[string]string) (*daemon.SubmitResponse, error) {
	req := daemon.SubmitRequest{Paths: paths, Drafts: drafts}
	var payload daemon.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/submit", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Queue retrieves queue items, optionally filtered by status names.
func (c *Client) Queue(ctx context.Context, statuses ...string) ([]*workspace.ItemView, error) {
	rel := &url.URL{Path: "/api/queue"}
	if len(statuses) > 0 {
		values := url.Values{}
		values.Set("status", strings.Join(statuses, ","))
		rel.RawQuery = values.Encode()
	}
	var payload struct {
		Items []*workspace.ItemView `json:"items"`
	}
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// Item retrieves a single queue item.
func (c *Client) Item(ctx context.Context, id int64) (*workspace.ItemView, error) {
	var payload workspace.ItemView
	if err := c.do(ctx, http.MethodGet, "/api/queue/"+strconv.FormatInt(id, 10), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Replace re-enqueues a duplicate or failed item with the overwrite flag.
func (c *Client) Replace(ctx context.Context, id int64) (*workspace.ItemView, error) {
	var payload workspace.ItemView
	path := fmt.Sprintf("/api/queue/%d/replace", id)
	if err := c.do(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Remove deletes a pending or terminal queue item.
func (c *Client) Remove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/queue/"+strconv.FormatInt(id, 10), nil, nil)
}

// ClearTerminal removes complete, error, and duplicate items and returns the
// count removed.
func (c *Client) ClearTerminal(ctx context.Context) (int64, error) {
	var payload struct {
		Cleared int64 `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/queue/clear", nil, &payload); err != nil {
		return 0, err
	}
	return payload.Cleared, nil
}

// Catalog retrieves the workspace catalog.
func (c *Client) Catalog(ctx context.Context) ([]daemon.CatalogEntryView, error) {
	var payload struct {
		Entries []daemon.CatalogEntryView `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Entries, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	return c.doURL(ctx, method, &url.URL{Path: path}, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("api %s: %s", rel.Path, apiErr.Error)
		}
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
