package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, source_path, display_name, size_bytes, status, progress_percent, progress_phase, error_message, rejected, duplicate_path, manifest_json, draft_json, replace_requested, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		sourcePath       string
		displayName      string
		sizeBytes        sql.NullInt64
		statusStr        string
		progressPercent  sql.NullInt64
		progressPhase    sql.NullString
		errorMessage     sql.NullString
		rejected         sql.NullInt64
		duplicatePath    sql.NullString
		manifestJSON     sql.NullString
		draftJSON        sql.NullString
		replaceRequested sql.NullInt64
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&displayName,
		&sizeBytes,
		&statusStr,
		&progressPercent,
		&progressPhase,
		&errorMessage,
		&rejected,
		&duplicatePath,
		&manifestJSON,
		&draftJSON,
		&replaceRequested,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		SourcePath:      sourcePath,
		DisplayName:     displayName,
		SizeBytes:       sizeBytes.Int64,
		Status:          Status(statusStr),
		ProgressPercent: int(progressPercent.Int64),
		ProgressPhase:   progressPhase.String,
		ErrorMessage:    errorMessage.String,
		DuplicatePath:   duplicatePath.String,
		ManifestJSON:    manifestJSON.String,
		DraftJSON:       draftJSON.String,
	}
	if rejected.Valid {
		item.Rejected = rejected.Int64 != 0
	}
	if replaceRequested.Valid {
		item.ReplaceRequested = replaceRequested.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
