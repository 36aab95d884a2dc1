package statemachine

import (
	"errors"
	"testing"
)

func TestNewStartsAtInit(t *testing.T) {
	m := New("call-1")
	if m.Current() != StateInit {
		t.Fatalf("expected initial state %q, got %q", StateInit, m.Current())
	}
	if m.Language() != "en" {
		t.Fatalf("expected default language en, got %q", m.Language())
	}
}

func TestTransitionToValid(t *testing.T) {
	m := New("call-1")
	if err := m.TransitionTo(StateGreet); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Current() != StateGreet {
		t.Fatalf("expected state %q, got %q", StateGreet, m.Current())
	}
	hist := m.History()
	if len(hist) != 1 || hist[0].From != StateInit || hist[0].To != StateGreet {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestTransitionToInvalidRejected(t *testing.T) {
	m := New("call-1")
	err := m.TransitionTo(StateEnd)
	if err == nil {
		t.Fatal("expected an error for an invalid transition")
	}
	var invalidErr *InvalidTransitionError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if invalidErr.From != StateInit || invalidErr.To != StateEnd {
		t.Fatalf("unexpected error fields: %+v", invalidErr)
	}
	if m.Current() != StateInit {
		t.Fatalf("state should not change after a rejected transition, got %q", m.Current())
	}
}

func TestHandleTimeoutBypassesAllowList(t *testing.T) {
	m := New("call-1")
	_ = m.TransitionTo(StateGreet)
	_ = m.TransitionTo(StateLanguageSelect)
	_ = m.TransitionTo(StateClassifyCustomerType)
	_ = m.TransitionTo(StateIntentDiscovery)

	if m.CanTransitionTo(StateTimeout) {
		t.Fatal("fixture assumption broken: TIMEOUT should not be a normal allow-listed transition from INTENT_DISCOVERY")
	}
	next := m.HandleTimeout()
	if next != StateTimeout {
		t.Fatalf("expected forced transition to %q, got %q", StateTimeout, next)
	}
}

func TestSetLanguageRejectsUnsupported(t *testing.T) {
	m := New("call-1")
	if err := m.SetLanguage("fr"); err == nil {
		t.Fatal("expected an error for unsupported language")
	}
	if err := m.SetLanguage("es"); err != nil {
		t.Fatalf("unexpected error setting supported language: %v", err)
	}
	if m.Language() != "es" {
		t.Fatalf("expected language es, got %q", m.Language())
	}
}

func TestCurrentPromptNonEmptyInBothLanguages(t *testing.T) {
	m := New("call-1")
	_ = m.TransitionTo(StateGreet)
	if m.CurrentPrompt() == "" {
		t.Fatal("expected a non-empty greeting prompt")
	}
	_ = m.SetLanguage("es")
	if m.CurrentPrompt() == "" {
		t.Fatal("expected a non-empty Spanish greeting prompt")
	}
}

func TestIsTerminalOnlyAtEnd(t *testing.T) {
	m := New("call-1")
	if m.IsTerminal() {
		t.Fatal("INIT should not be terminal")
	}
	m = FromSnapshot("call-1", StateEnd, "en", nil, nil)
	if !m.IsTerminal() {
		t.Fatal("END should be terminal")
	}
}

func TestResetClearsHistoryAndLanguage(t *testing.T) {
	m := New("call-1")
	_ = m.TransitionTo(StateGreet)
	_ = m.SetLanguage("es")
	m.Reset()
	if m.Current() != StateInit || m.Language() != "en" || len(m.History()) != 0 {
		t.Fatalf("reset did not restore defaults: state=%q lang=%q history=%v", m.Current(), m.Language(), m.History())
	}
}

func TestToMapAndFromSnapshotRoundTrip(t *testing.T) {
	m := New("call-42")
	_ = m.TransitionTo(StateGreet)
	_ = m.TransitionTo(StateLanguageSelect)
	_ = m.SetLanguage("es")
	m.Context()["intent"] = "billing question"

	snap := m.ToMap()
	restored := FromSnapshot(
		snap["call_id"].(string),
		snap["current_state"].(CallState),
		snap["language"].(string),
		m.History(),
		m.Context(),
	)

	if restored.Current() != m.Current() || restored.Language() != m.Language() {
		t.Fatalf("round trip mismatch: got state=%q lang=%q", restored.Current(), restored.Language())
	}
	if restored.Context()["intent"] != "billing question" {
		t.Fatalf("round trip lost context: %+v", restored.Context())
	}
}
