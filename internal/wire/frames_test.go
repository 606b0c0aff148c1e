package wire

import (
	"encoding/json"
	"testing"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

func TestSnapshotPairWireShape(t *testing.T) {
	pair := SnapshotPair{
		EntityId: "s1",
		Entry: models.LocationEntry{
			EntityId: "s1",
			Name:     "Khensani",
			Location: models.Location{Lat: -25.7489, Lng: 28.2295},
			Accuracy: "high",
		},
	}

	data, err := json.Marshal(pair)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Bulk snapshots deliver [entityId, entry] tuples, not objects.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("expected a JSON array, got %s", data)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(raw))
	}

	var decoded SnapshotPair
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.EntityId != "s1" {
		t.Fatalf("expected entity s1, got %s", decoded.EntityId)
	}
	if decoded.Entry.Location.Lat != -25.7489 {
		t.Fatalf("expected lat preserved, got %f", decoded.Entry.Location.Lat)
	}
}

func TestPeekType(t *testing.T) {
	ft, err := PeekType([]byte(`{"type":"student-location","studentId":"s1"}`))
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if ft != TypeLocation {
		t.Fatalf("expected %s, got %s", TypeLocation, ft)
	}

	if _, err := PeekType([]byte(`{"studentId":"s1"}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := PeekType([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestAlertBroadcastStampWinsOverPayload(t *testing.T) {
	payload := map[string]interface{}{
		"message": "help",
		"alertId": "spoofed",
	}
	ev := models.AlertEvent{
		AlertId:  "emergency-123",
		Severity: models.SeverityHigh,
	}

	out := NewAlertBroadcast(TypeEmergency, payload, ev)
	if out["alertId"] != "emergency-123" {
		t.Fatalf("expected stamped alertId to win, got %v", out["alertId"])
	}
	if out["type"] != TypeEmergency {
		t.Fatalf("expected type %s, got %v", TypeEmergency, out["type"])
	}
	if out["message"] != "help" {
		t.Fatalf("expected payload field carried, got %v", out["message"])
	}
}
