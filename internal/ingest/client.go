package ingest

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"folio/internal/services"
)

const (
	defaultUserAgent      = "folio/0.1"
	defaultRequestTimeout = 5 * time.Second
)

// Uploader is the surface the transfer executor needs from the archive
// client. Implemented by *Client and by test fakes.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*Stream, error)
}

var _ Uploader = (*Client)(nil)

// Client talks to the archive service's streaming ingestion API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout bounds non-streaming requests such as health probes.
// Streaming ingest exchanges are bounded by the caller's context instead.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// NewClient builds a Client for the archive service at baseURL. The client
// carries no overall timeout; transfers are bounded by the caller's context.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "new client", "archive url missing", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "new client", fmt.Sprintf("invalid archive url %q", baseURL), err)
	}
	client := &Client{
		baseURL:        parsed,
		http:           &http.Client{},
		userAgent:      defaultUserAgent,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Health probes the archive service.
func (c *Client) Health(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	healthCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(healthCtx, http.MethodGet, c.endpoint("/api/health"), nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "ingest", "health", "archive unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "ingest", "health", fmt.Sprintf("archive returned %d", resp.StatusCode), nil)
	}
	return nil
}

// Upload opens one streaming exchange for the given file. The request body is
// streamed through a pipe so large documents are never buffered in memory.
// The returned Stream yields events until its terminal event; the caller owns
// closing it.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Stream, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	file, err := os.Open(req.SourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "ingest", "upload", "open source file", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer file.Close()
		err := writeUploadBody(writer, file, req)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		_ = pw.CloseWithError(err)
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/ingest"), pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "upload", "open stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = fmt.Sprintf("archive returned %d", resp.StatusCode)
		}
		return nil, services.Wrap(services.ErrTransient, "ingest", "upload", detail, nil)
	}

	return newStream(resp.Body), nil
}

func writeUploadBody(writer *multipart.Writer, file *os.File, req UploadRequest) error {
	name := req.DisplayName
	if name == "" {
		name = file.Name()
	}
	if err := writer.WriteField("replace", strconv.FormatBool(req.Replace)); err != nil {
		return fmt.Errorf("write replace field: %w", err)
	}
	if strings.TrimSpace(req.DraftJSON) != "" {
		if err := writer.WriteField("draft", req.DraftJSON); err != nil {
			return fmt.Errorf("write draft field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("stream file bytes: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	ref := *c.baseURL
	ref.Path = strings.TrimRight(ref.Path, "/") + path
	return ref.String()
}
