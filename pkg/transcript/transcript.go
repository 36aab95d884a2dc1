// Package transcript implements the persisted per-call transcript
// document: an ordered list of speaker turns plus a metadata block
// recomputed on every append, capped to roughly 100KB by evicting the
// oldest turns.
package transcript

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxBytes is the size cap before oldest-turn eviction kicks in. After
// each append, oldest turns are evicted until the marshaled JSON is at or
// under the cap; the last remaining turn is never evicted, so a single
// oversized turn can leave the document above it.
const maxBytes = 100 * 1024

// version is the transcript schema version string, matching
// original_source's TranscriptData.VERSION.
const version = "1.0"

// Turn is one utterance in the call. Confidence and DurationMS are
// omitted from the marshaled JSON when unset, since they are only ever
// known for caller turns that passed through STT.
type Turn struct {
	Speaker    string    `json:"speaker"` // "agent", "caller", or "system"
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence *float64  `json:"confidence,omitempty"`
	DurationMS *int      `json:"duration_ms,omitempty"`
}

// Metadata summarizes the transcript as of the last append.
type Metadata struct {
	TotalTurns      int     `json:"total_turns"`
	TotalDurationMS int     `json:"total_duration_ms"`
	AvgConfidence   float64 `json:"avg_confidence"`
}

// Document is the persisted transcript for one call.
type Document struct {
	Version   string    `json:"version"`
	Language  string    `json:"language"`
	StartedAt time.Time `json:"started_at"`
	Turns     []Turn    `json:"turns"`
	Metadata  Metadata  `json:"metadata"`
}

// New creates an empty transcript document for a call starting now, in
// the given language.
func New(language string, startedAt time.Time) *Document {
	return &Document{
		Version:   version,
		Language:  language,
		StartedAt: startedAt,
		Turns:     nil,
		Metadata:  Metadata{},
	}
}

// Append records one turn and recomputes metadata, evicting the oldest
// turns if the serialized document would otherwise exceed maxBytes.
// confidence and durationMS are optional STT measurements; pass nil for
// turns (agent/system) that never went through STT.
func (d *Document) Append(speaker, text string, at time.Time, confidence *float64, durationMS *int) {
	d.Turns = append(d.Turns, Turn{
		Speaker:    speaker,
		Text:       text,
		Timestamp:  at,
		Confidence: confidence,
		DurationMS: durationMS,
	})
	d.recomputeMetadata()
	d.evictIfOversized()
}

func (d *Document) recomputeMetadata() {
	if len(d.Turns) == 0 {
		d.Metadata = Metadata{}
		return
	}

	totalDuration := 0
	confSum := 0.0
	confCount := 0
	for _, t := range d.Turns {
		if t.DurationMS != nil {
			totalDuration += *t.DurationMS
		}
		if t.Confidence != nil {
			confSum += *t.Confidence
			confCount++
		}
	}

	avgConf := 0.0
	if confCount > 0 {
		avgConf = confSum / float64(confCount)
	}

	d.Metadata = Metadata{
		TotalTurns:      len(d.Turns),
		TotalDurationMS: totalDuration,
		AvgConfidence:   avgConf,
	}
}

func (d *Document) evictIfOversized() {
	for len(d.Turns) > 1 {
		size, err := d.approxSize()
		if err != nil || size <= maxBytes {
			return
		}
		d.Turns = d.Turns[1:]
		d.recomputeMetadata()
	}
}

func (d *Document) approxSize() (int, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// Save serializes the document to its persisted string form.
func (d *Document) Save() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("transcript: marshal: %w", err)
	}
	return string(data), nil
}

// Load deserializes a previously-saved transcript document.
func Load(raw string) (*Document, error) {
	var d Document
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("transcript: unmarshal: %w", err)
	}
	return &d, nil
}
