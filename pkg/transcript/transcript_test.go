package transcript

import (
	"strings"
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestAppendUpdatesMetadata(t *testing.T) {
	start := time.Now()
	doc := New("en", start)
	doc.Append("agent", "Hello! Thank you for calling.", start.Add(time.Second), nil, nil)
	doc.Append("caller", "I need to reschedule.", start.Add(3*time.Second), floatPtr(0.9), intPtr(2500))

	if doc.Metadata.TotalTurns != 2 {
		t.Fatalf("expected total_turns 2, got %d", doc.Metadata.TotalTurns)
	}
	if doc.Metadata.TotalDurationMS != 2500 {
		t.Fatalf("expected total_duration_ms 2500, got %d", doc.Metadata.TotalDurationMS)
	}
	if doc.Metadata.AvgConfidence != 0.9 {
		t.Fatalf("expected avg_confidence 0.9 (averaged over turns with a confidence), got %f", doc.Metadata.AvgConfidence)
	}
}

func TestAppendWithNoScoredTurnsLeavesAvgConfidenceZero(t *testing.T) {
	start := time.Now()
	doc := New("en", start)
	doc.Append("agent", "Hello!", start, nil, nil)
	doc.Append("system", "call transferred", start, nil, nil)

	if doc.Metadata.AvgConfidence != 0 {
		t.Fatalf("expected avg_confidence 0 when no turn carries a confidence, got %f", doc.Metadata.AvgConfidence)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	start := time.Now().Truncate(time.Second)
	doc := New("es", start)
	doc.Append("agent", "Hola!", start.Add(time.Second), nil, nil)
	doc.Append("caller", "Necesito ayuda.", start.Add(2*time.Second), floatPtr(0.87), intPtr(1800))

	raw, err := doc.Save()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(raw, `"version":"1.0"`) {
		t.Fatalf("expected the wire version to be the string \"1.0\", got: %s", raw)
	}
	restored, err := Load(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.Language != "es" || len(restored.Turns) != 2 {
		t.Fatalf("round trip mismatch: %+v", restored)
	}
	if restored.Turns[0].Text != "Hola!" {
		t.Fatalf("unexpected turn text: %q", restored.Turns[0].Text)
	}
	if restored.Turns[1].Confidence == nil || *restored.Turns[1].Confidence != 0.87 {
		t.Fatalf("unexpected confidence after round trip: %+v", restored.Turns[1].Confidence)
	}
	if restored.Turns[1].DurationMS == nil || *restored.Turns[1].DurationMS != 1800 {
		t.Fatalf("unexpected duration_ms after round trip: %+v", restored.Turns[1].DurationMS)
	}
}

func TestAppendOmitsConfidenceAndDurationWhenUnset(t *testing.T) {
	start := time.Now()
	doc := New("en", start)
	doc.Append("agent", "Hello!", start, nil, nil)

	raw, err := doc.Save()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(raw, `"confidence"`) || strings.Contains(raw, `"duration_ms"`) {
		t.Fatalf("expected confidence/duration_ms to be omitted for an unscored turn, got: %s", raw)
	}
}

func TestAppendEvictsOldestTurnsWhenOversized(t *testing.T) {
	start := time.Now()
	doc := New("en", start)
	bigContent := strings.Repeat("x", 2000)
	for i := 0; i < 100; i++ {
		doc.Append("caller", bigContent, start.Add(time.Duration(i)*time.Second), floatPtr(0.5), intPtr(1000))
	}
	size, err := doc.approxSize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size > maxBytes+4096 {
		t.Fatalf("document grew past the size cap: %d bytes", size)
	}
	if len(doc.Turns) < 1 {
		t.Fatal("eviction should never remove the final remaining turn")
	}
	if doc.Metadata.TotalTurns != len(doc.Turns) {
		t.Fatalf("metadata total_turns must track eviction: metadata=%d turns=%d", doc.Metadata.TotalTurns, len(doc.Turns))
	}
}
