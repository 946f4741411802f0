package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Archive.URL = strings.TrimRight(strings.TrimSpace(c.Archive.URL), "/")
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	normalized := make([]string, 0, len(c.Uploader.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Uploader.AllowedExtensions))
	for _, ext := range c.Uploader.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	c.Uploader.AllowedExtensions = normalized

	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Uploader.MaxConcurrent < 1 {
		return fmt.Errorf("uploader.max_concurrent must be at least 1, got %d", c.Uploader.MaxConcurrent)
	}
	if c.Uploader.TransferTimeout < 0 {
		return fmt.Errorf("uploader.transfer_timeout must not be negative, got %d", c.Uploader.TransferTimeout)
	}
	if len(c.Uploader.AllowedExtensions) == 0 {
		return fmt.Errorf("uploader.allowed_extensions must not be empty")
	}
	if c.Archive.URL == "" {
		return fmt.Errorf("archive.url must be set")
	}
	if parsed, err := url.Parse(c.Archive.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("archive.url %q is not a valid URL", c.Archive.URL)
	}
	if c.Archive.RequestTimeout < 0 {
		return fmt.Errorf("archive.request_timeout must not be negative, got %d", c.Archive.RequestTimeout)
	}
	if c.Workspace.EventBuffer < 1 {
		return fmt.Errorf("workspace.event_buffer must be at least 1, got %d", c.Workspace.EventBuffer)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console or json)", c.Logging.Format)
	}
	return nil
}

// SupportedExtension reports whether the file extension passes the allow-list.
// The extension argument may be a bare extension or a full filename.
func (c *Config) SupportedExtension(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, ext := range c.Uploader.AllowedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
