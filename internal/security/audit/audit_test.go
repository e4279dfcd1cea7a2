package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLogActionIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	al := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := WithRequestID(context.Background(), "req-1")

	al.LogAction(ctx, Entry{UserID: 3, Action: "delete", Resource: "issue", ResourceID: "2", Status: 400})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["request_id"] != "req-1" || line["outcome"] != "failed" || line["resource"] != "issue" {
		t.Fatalf("unexpected audit line %v", line)
	}
	if line["user_id"].(float64) != 3 {
		t.Fatalf("unexpected user id %v", line["user_id"])
	}
}
