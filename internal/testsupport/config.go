package testsupport

import (
	"path/filepath"
	"testing"

	"folio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Archive.URL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithArchiveURL points the test config at a live (usually httptest) archive.
func WithArchiveURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Archive.URL = url
	}
}

// WithMaxConcurrent overrides the upload concurrency ceiling.
func WithMaxConcurrent(n int) ConfigOption {
	return func(c *config.Config) {
		c.Uploader.MaxConcurrent = n
	}
}

// WithTransferTimeout overrides the per-transfer timeout in seconds.
func WithTransferTimeout(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Uploader.TransferTimeout = seconds
	}
}
