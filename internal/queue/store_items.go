package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewItem inserts a pending upload for an accepted file.
func (s *Store) NewItem(ctx context.Context, sourcePath, displayName string, sizeBytes int64, draftJSON string) (*Item, error) {
	if sourcePath == "" {
		return nil, errors.New("source path is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO upload_items (
            source_path, display_name, size_bytes, status,
            progress_percent, draft_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sourcePath,
		displayName,
		sizeBytes,
		StatusPending,
		0,
		nullableString(draftJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// NewRejectedItem inserts an item that failed the extension allow-list.
// Rejected items are terminal on arrival and never enter the transfer flow.
func (s *Store) NewRejectedItem(ctx context.Context, sourcePath, displayName, reason string) (*Item, error) {
	if sourcePath == "" {
		return nil, errors.New("source path is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO upload_items (
            source_path, display_name, status, error_message, rejected,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, 1, ?, ?)`,
		sourcePath,
		displayName,
		StatusError,
		reason,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rejected item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM upload_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE upload_items
         SET source_path = ?, display_name = ?, size_bytes = ?, status = ?,
             progress_percent = ?, progress_phase = ?, error_message = ?,
             rejected = ?, duplicate_path = ?, manifest_json = ?, draft_json = ?,
             replace_requested = ?, updated_at = ?
         WHERE id = ?`,
		item.SourcePath,
		item.DisplayName,
		item.SizeBytes,
		item.Status,
		item.ProgressPercent,
		nullableString(item.ProgressPhase),
		nullableString(item.ErrorMessage),
		boolToInt(item.Rejected),
		nullableString(item.DuplicatePath),
		nullableString(item.ManifestJSON),
		nullableString(item.DraftJSON),
		boolToInt(item.ReplaceRequested),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// PendingInOrder returns pending items in FIFO admission order.
func (s *Store) PendingInOrder(ctx context.Context) ([]*Item, error) {
	return s.ItemsByStatus(ctx, StatusPending)
}

// ItemsByStatus returns items matching a status ordered by insertion.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM upload_items WHERE status = ? ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM upload_items ORDER BY id`)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, 0, len(statuses))
		for _, status := range statuses {
			args = append(args, status)
		}
		rows, err = s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM upload_items WHERE status IN (`+placeholders+`) ORDER BY id`, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes an item by identifier and reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM upload_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearTerminal removes complete, error, and duplicate items from the queue.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM upload_items WHERE status IN (?, ?, ?)`,
		StatusComplete, StatusError, StatusDuplicate,
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM upload_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns per-status item counts.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM upload_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue counts for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Pending:   stats[StatusPending],
		Active:    stats[StatusUploading] + stats[StatusProcessing],
		Complete:  stats[StatusComplete],
		Error:     stats[StatusError],
		Duplicate: stats[StatusDuplicate],
	}
	for _, count := range stats {
		summary.Total += count
	}
	return summary, nil
}
