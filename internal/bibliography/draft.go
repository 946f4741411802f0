package bibliography

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/internal/services"
)

// Draft is user-editable metadata attached to a queue item. It rides along
// with the upload but is independent of transfer state: a draft survives
// duplicates, errors, and replace attempts unchanged.
type Draft struct {
	Title     string   `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Year      int      `json:"year,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// DeriveTitle produces a human-readable title from a file path: the basename
// with its extension stripped, separators collapsed, and title casing applied.
// The workspace uses it as the last-resort title when cataloging a document
// that arrived with neither an archive-reported nor a draft title.
func DeriveTitle(sourcePath string) string {
	if sourcePath == "" {
		return "Untitled Document"
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Document"
	}
	return cases.Title(language.Und).String(title)
}

// Normalize trims whitespace, drops empty authors and tags, and applies
// title casing to the title.
func (d *Draft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title != "" {
		d.Title = cases.Title(language.Und).String(d.Title)
	}
	d.Publisher = strings.TrimSpace(d.Publisher)
	d.Notes = strings.TrimSpace(d.Notes)
	d.Authors = compact(d.Authors)
	d.Tags = compactLower(d.Tags)
}

// Validate reports whether the draft is storable.
func (d Draft) Validate() error {
	if d.Year != 0 {
		current := time.Now().Year()
		if d.Year < 1000 || d.Year > current+1 {
			return services.Wrap(services.ErrValidation, "bibliography", "validate",
				fmt.Sprintf("publication year %d out of range", d.Year), nil)
		}
	}
	for _, author := range d.Authors {
		if strings.TrimSpace(author) == "" {
			return services.Wrap(services.ErrValidation, "bibliography", "validate", "empty author entry", nil)
		}
	}
	return nil
}

// Encode renders the draft for persistence. An empty draft encodes to the
// empty string so items without metadata carry no payload.
func (d Draft) Encode() (string, error) {
	if d.IsZero() {
		return "", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return string(data), nil
}

// Parse decodes a persisted draft payload. An empty payload yields a zero
// draft.
func Parse(raw string) (Draft, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Draft{}, nil
	}
	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return Draft{}, services.Wrap(services.ErrValidation, "bibliography", "parse", "malformed draft payload", err)
	}
	return draft, nil
}

// IsZero reports whether the draft carries no metadata.
func (d Draft) IsZero() bool {
	return d.Title == "" && len(d.Authors) == 0 && d.Year == 0 &&
		d.Publisher == "" && len(d.Tags) == 0 && d.Notes == ""
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func compactLower(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
