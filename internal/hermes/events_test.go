package hermes

import (
	"encoding/json"
	"testing"
)

func TestImportRequestedParsing(t *testing.T) {
	raw := `{
		"request_id": "req-001",
		"user_id": "6f1c1b4e-3f7a-4a43-9a52-1f3f0c8d2e11",
		"source_filter": "whatsapp",
		"max_samples": 250
	}`

	var evt ImportRequested
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("failed to parse ImportRequested: %v", err)
	}

	if evt.RequestID != "req-001" {
		t.Errorf("expected request_id 'req-001', got '%s'", evt.RequestID)
	}
	if evt.SourceFilter != "whatsapp" {
		t.Errorf("expected source_filter 'whatsapp', got '%s'", evt.SourceFilter)
	}
	if evt.MaxSamples == nil || *evt.MaxSamples != 250 {
		t.Errorf("expected max_samples 250, got %v", evt.MaxSamples)
	}
	if evt.MinQuality != nil {
		t.Errorf("expected min_quality to be absent, got %v", *evt.MinQuality)
	}
}

func TestImportCompletedOmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(ImportCompleted{UserID: "u1", Created: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["error"]; ok {
		t.Error("expected error field to be omitted")
	}
	if m["created"] != float64(3) {
		t.Errorf("expected created 3, got %v", m["created"])
	}
}
