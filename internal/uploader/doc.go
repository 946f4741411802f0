// Package uploader coordinates the bounded-concurrency upload queue: a
// non-blocking slot limiter, a FIFO drain that admits pending items, and
// per-item transfer executors that consume the archive service's event
// stream and settle each item exactly once.
package uploader
