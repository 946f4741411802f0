// Package daemon assembles the folio background process: the queue store,
// the upload manager, the workspace, the preflight checks, and the HTTP API
// that the CLI and UI clients talk to.
package daemon
