package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBuildAuditEventIncludesRequiredFields(t *testing.T) {
	req := httptest.NewRequest("DELETE", "/api/users/u-1", nil)
	req.Header.Set("X-Request-Id", "req-test-1")
	req.RemoteAddr = "127.0.0.1:12345"

	ev := BuildAuditEvent(req, AuditInput{
		EventName:  "user.delete",
		TargetType: "user",
		TargetID:   "u-1",
		Action:     "delete",
		Outcome:    "success",
	})

	if ev.EventVersion != 1 {
		t.Fatalf("expected event version 1, got %d", ev.EventVersion)
	}
	if ev.ActorIP != "127.0.0.1" {
		t.Fatalf("expected actor ip without port, got %q", ev.ActorIP)
	}
	if ev.RequestID != "req-test-1" {
		t.Fatalf("unexpected request id: %s", ev.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
		t.Fatalf("expected RFC3339 ts, got %q err=%v", ev.TS, err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestAuditEventValidateRejectsMissingEventName(t *testing.T) {
	ev := AuditEvent{
		EventVersion: 1,
		ActorIP:      "127.0.0.1",
		TargetType:   "user",
		TargetID:     "u-1",
		Action:       "update",
		Outcome:      "success",
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := ev.Validate(); err == nil {
		t.Fatal("expected validation error for missing event_name")
	}
}

func TestEmitAuditWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	prev := NewLogger()
	installLogger(slog.NewJSONHandler(&buf, nil))
	defer installLogger(prev.Handler())

	req := httptest.NewRequest("POST", "/api/users", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	EmitAudit(req, AuditInput{
		EventName:  "user.create",
		TargetType: "user",
		TargetID:   "u-9",
		Action:     "create",
		Outcome:    "success",
	})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode audit record: %v (raw=%q)", err, buf.String())
	}
	if rec["msg"] != "audit" || rec["event_name"] != "user.create" || rec["target_id"] != "u-9" {
		t.Fatalf("unexpected audit record: %v", rec)
	}
	if _, invalid := rec["audit_invalid"]; invalid {
		t.Fatalf("expected valid audit event, got %v", rec["audit_invalid"])
	}
}
