package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"folio/internal/logging"
	"folio/internal/services"
)

func TestNewJSONFormatEmitsStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("upload admitted", logging.Int64(logging.FieldItemID, 7))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if decoded["msg"] != "upload admitted" {
		t.Fatalf("unexpected message: %v", decoded["msg"])
	}
	if decoded[logging.FieldItemID] != float64(7) {
		t.Fatalf("unexpected item id: %v", decoded[logging.FieldItemID])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextStampsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := services.WithItemID(context.Background(), 9)
	ctx = services.WithRequestID(ctx, "req-abc")
	logging.WithContext(ctx, logger).Info("transfer settled")

	out := buf.String()
	if !strings.Contains(out, "item_id=9") {
		t.Fatalf("expected item id in output, got %q", out)
	}
	if !strings.Contains(out, "correlation_id=req-abc") {
		t.Fatalf("expected correlation id in output, got %q", out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	// Must not panic and must report disabled at every level.
	logger.Error("ignored")
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("expected nop logger to be disabled")
	}
}
