// Package ingest implements the client side of the archive service's
// streaming ingestion protocol.
//
// One upload is one multipart POST whose response is an NDJSON stream: zero or
// more progress events followed by exactly one terminal event (duplicate,
// complete, or error). Stream.Next enforces that shape so the executor's event
// loop can treat a truncated stream as a transport failure instead of a silent
// hang.
package ingest
