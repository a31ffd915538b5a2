package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/starlab-io/rmesg/internal/model"
	"github.com/starlab-io/rmesg/internal/stream"
)

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, "text")

	item := stream.Item{Entry: &model.Entry{Message: "hello"}}
	if err := o.Write(context.Background(), item); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := buf.String(); got != "hello\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, "json")

	items := []stream.Item{
		{Entry: &model.Entry{Facility: model.FacKern, Level: model.LevelInfo, Message: "first"}},
		{Gap: &model.Gap{Missed: 2, Before: 1, After: 4}},
	}
	for _, item := range items {
		if err := o.Write(context.Background(), item); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if entry["message"] != "first" || entry["facility"] != "kern" {
		t.Fatalf("unexpected entry record: %v", entry)
	}

	var gap map[string]any
	if err := json.Unmarshal(lines[1], &gap); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if gap["dropped"] != float64(2) {
		t.Fatalf("unexpected gap record: %v", gap)
	}
	if _, ok := gap["message"]; ok {
		t.Fatalf("gap record must omit message, got %v", gap)
	}
}

func TestWriteFlushesPerItem(t *testing.T) {
	var buf bytes.Buffer
	o := New(&buf, "text")

	item := stream.Item{Entry: &model.Entry{Message: "immediate"}}
	if err := o.Write(context.Background(), item); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Visible without Close: follow mode depends on it.
	if got := buf.String(); got != "immediate\n" {
		t.Fatalf("expected line flushed on write, got %q", got)
	}
}
