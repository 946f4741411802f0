package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CatalogEntry is a document reconciled into the workspace catalog after a
// completed upload.
type CatalogEntry struct {
	ID          int64
	ItemID      int64
	Path        string
	Title       string
	ContentHash string
	SizeBytes   int64
	AddedAt     time.Time
}

const catalogColumns = "id, item_id, path, title, content_hash, size_bytes, added_at"

// AddCatalogEntry records a manifest entry in the workspace catalog. An entry
// with the same path replaces the previous row, which covers the overwrite
// path of a replace upload.
func (s *Store) AddCatalogEntry(ctx context.Context, entry *CatalogEntry) (*CatalogEntry, error) {
	if entry == nil {
		return nil, errors.New("entry is nil")
	}
	if entry.Path == "" {
		return nil, errors.New("entry path is required")
	}
	now := time.Now().UTC()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO catalog_entries (item_id, path, title, content_hash, size_bytes, added_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             item_id = excluded.item_id,
             title = excluded.title,
             content_hash = excluded.content_hash,
             size_bytes = excluded.size_bytes,
             added_at = excluded.added_at`,
		nullableInt64(entry.ItemID),
		entry.Path,
		nullableString(entry.Title),
		entry.ContentHash,
		entry.SizeBytes,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert catalog entry: %w", err)
	}

	// last_insert_rowid does not advance on the DO UPDATE path, so the row is
	// always re-read by its path.
	return s.CatalogEntryByPath(ctx, entry.Path)
}

// CatalogEntryByPath fetches a catalog entry by library path.
func (s *Store) CatalogEntryByPath(ctx context.Context, path string) (*CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_entries WHERE path = ?`, path)
	entry, err := scanCatalogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return entry, nil
}

// ListCatalog returns catalog entries ordered by addition time, newest last.
func (s *Store) ListCatalog(ctx context.Context) ([]*CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+catalogColumns+` FROM catalog_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var entries []*CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanCatalogEntry(scanner interface{ Scan(dest ...any) error }) (*CatalogEntry, error) {
	var (
		id       int64
		itemID   sql.NullInt64
		path     string
		title    sql.NullString
		hash     string
		size     sql.NullInt64
		addedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &itemID, &path, &title, &hash, &size, &addedRaw); err != nil {
		return nil, err
	}
	entry := &CatalogEntry{
		ID:          id,
		ItemID:      itemID.Int64,
		Path:        path,
		Title:       title.String,
		ContentHash: hash,
		SizeBytes:   size.Int64,
	}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		entry.AddedAt = added
	}
	return entry, nil
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
