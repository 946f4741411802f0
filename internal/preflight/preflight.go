package preflight

import (
	"context"

	"folio/internal/config"
	"folio/internal/ingest"
)

// minFreeBytes is the floor for the log/queue volume; below this the daemon
// warns at startup.
const minFreeBytes = 256 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Run executes the daemon startup checks. Failures are advisory: the daemon
// starts anyway and the results go to the log, since the archive service may
// come up later.
func Run(ctx context.Context, cfg *config.Config, archive *ingest.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Queue volume", cfg.Paths.LogDir, minFreeBytes),
	}
	if archive != nil {
		results = append(results, CheckArchive(ctx, archive))
	}
	return results
}
