package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestNewEntryUsesTimeUUID(t *testing.T) {
	e := NewEntry(ActionOrderCreate, ResourceOrder, "abc")
	if e.ID.Version() != 1 {
		t.Fatalf("audit id version = %d, want 1", e.ID.Version())
	}
	if e.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
	if e.Action != "order.create" || e.Resource != "order" || e.ResourceID != "abc" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(slog.New(slog.NewJSONHandler(&buf, nil)))

	e := NewEntry(ActionProductDelete, ResourceProduct, uuid.NewString())
	e.UserID = "u1"
	e.Success = true
	e.Status = 204
	rec.Record(context.Background(), e)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["action"] != "product.delete" || line["user_id"] != "u1" || line["success"] != true {
		t.Fatalf("unexpected log line %v", line)
	}
}
