package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckActive returns items left in uploading or processing back to
// pending. A daemon crash mid-transfer must not strand items; they rejoin the
// queue at the next drain with progress reset.
func (s *Store) ResetStuckActive(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE upload_items
         SET status = ?, progress_percent = 0, progress_phase = NULL, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusUploading,
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}
