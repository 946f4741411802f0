// Package services defines shared utilities consumed by the upload pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp upload item IDs and correlation identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent between the uploader, the archive client, and
//     the API surface.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the daemon.
package services
