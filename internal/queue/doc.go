// Package queue persists the upload queue and the workspace catalog in SQLite.
//
// It owns the Item lifecycle model (pending through the terminal complete,
// error, and duplicate states), the schema, and every query the uploader and
// API layers perform. The store serializes writes through busy-retry helpers
// so concurrent daemon and CLI access stays safe, and FIFO admission order is
// simply insertion order (ORDER BY id).
//
// The uploader's manager is the only component that moves items between
// statuses; other consumers read.
package queue
