// Package workspace is the reconciliation layer: completed uploads land in
// the document catalog and queue changes fan out to UI clients over
// WebSocket.
package workspace
