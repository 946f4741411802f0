// Package client is the HTTP client the folio CLI uses to talk to a running
// daemon.
package client
