// Package config loads, validates, and normalizes folio's TOML configuration.
//
// Defaults live in defaults.go and the embedded sample_config.toml documents
// every setting. Load resolves the config path (explicit flag, then
// ~/.config/folio/config.toml), expands ~ in path fields, and validates values
// the daemon cannot run with, so callers receive a ready-to-use Config.
package config
