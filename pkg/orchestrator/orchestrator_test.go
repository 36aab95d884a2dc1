package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentplexus/receptionist/pkg/callerr"
	"github.com/agentplexus/receptionist/pkg/model"
	"github.com/agentplexus/receptionist/pkg/providers/llm"
	"github.com/agentplexus/receptionist/pkg/providers/stt"
	"github.com/agentplexus/receptionist/pkg/providers/tts"
	"github.com/agentplexus/receptionist/pkg/statemachine"
	"github.com/agentplexus/receptionist/pkg/store"
	"github.com/agentplexus/receptionist/pkg/tools"
)

type stubSTT struct {
	text            string
	confidence      float64
	durationSeconds float64
	err             error
}

func (s *stubSTT) Transcribe(ctx context.Context, audio io.Reader, lang string) (stt.Result, error) {
	if s.err != nil {
		return stt.Result{}, s.err
	}
	return stt.Result{Text: s.text, Confidence: s.confidence, Language: lang, DurationSeconds: s.durationSeconds}, nil
}
func (s *stubSTT) TranscribeStream(ctx context.Context, audio io.Reader, lang string) (<-chan stt.TranscriptEvent, error) {
	return nil, nil
}

type stubLLM struct {
	completions []llm.Completion
	next        int
	err         error
}

func (s *stubLLM) Complete(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.Completion, error) {
	if s.err != nil {
		return llm.Completion{}, s.err
	}
	if s.next >= len(s.completions) {
		return s.completions[len(s.completions)-1], nil
	}
	c := s.completions[s.next]
	s.next++
	return c, nil
}

type stubTTS struct {
	err error
}

func (s *stubTTS) Synthesize(ctx context.Context, text, voice string, format tts.AudioFormat) (io.Reader, error) {
	if s.err != nil {
		return nil, s.err
	}
	return bytes.NewReader([]byte("audio:" + text)), nil
}
func (s *stubTTS) GetAvailableVoices(ctx context.Context) ([]tts.Voice, error) { return nil, nil }

func newTestOrchestrator(t *testing.T, sttP *stubSTT, llmP *stubLLM, ttsP *stubTTS) (*Orchestrator, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	dispatcher := tools.NewDispatcher(st, nil, nil)
	cfg := DefaultSessionConfig()
	orch := New(st, sttP, llmP, ttsP, dispatcher, cfg, zerolog.Nop())
	return orch, st
}

func TestStartSessionRejectsDuplicate(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubSTT{}, &stubLLM{}, &stubTTS{})
	ctx := context.Background()

	if _, err := orch.StartSession(ctx, "call-1", "+15551234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := orch.StartSession(ctx, "call-1", "+15551234567")
	var already *callerr.SessionAlreadyActiveError
	if !errors.As(err, &already) {
		t.Fatalf("expected SessionAlreadyActiveError, got %v", err)
	}
}

func TestGenerateGreetingTransitionsToGreet(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubSTT{}, &stubLLM{}, &stubTTS{})
	session, err := orch.StartSession(context.Background(), "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	greeting := orch.GenerateGreeting(session)
	if greeting == "" {
		t.Fatal("expected a non-empty greeting")
	}
	if session.StateM.Current() != statemachine.StateGreet {
		t.Fatalf("expected state GREET, got %s", session.StateM.Current())
	}
}

func TestProcessAudioPlainReply(t *testing.T) {
	sttP := &stubSTT{text: "I'd like to schedule an appointment", confidence: 0.92, durationSeconds: 2.5}
	llmP := &stubLLM{completions: []llm.Completion{{Content: "Sure, what day works for you?"}}}
	ttsP := &stubTTS{}
	orch, _ := newTestOrchestrator(t, sttP, llmP, ttsP)

	session, err := orch.StartSession(context.Background(), "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	audio, err := orch.ProcessAudio(context.Background(), session, bytes.NewReader([]byte("pcm-bytes")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := io.ReadAll(audio)
	if string(out) != "audio:Sure, what day works for you?" {
		t.Fatalf("unexpected synthesized audio: %q", out)
	}
	if len(session.History) != 2 {
		t.Fatalf("expected user+assistant history entries, got %d", len(session.History))
	}

	callerTurn := session.Transcript.Turns[len(session.Transcript.Turns)-2]
	if callerTurn.Confidence == nil || *callerTurn.Confidence != 0.92 {
		t.Fatalf("expected the caller turn to carry the STT confidence, got %+v", callerTurn.Confidence)
	}
	if callerTurn.DurationMS == nil || *callerTurn.DurationMS != 2500 {
		t.Fatalf("expected the caller turn to carry the STT duration in ms, got %+v", callerTurn.DurationMS)
	}

	stats := orch.GetSessionStats(session)
	if stats.AverageLatency <= 0 {
		t.Fatal("expected a non-zero average latency once STT/LLM/TTS phases have been timed")
	}
}

func TestProcessAudioDispatchesToolCallAndTransitions(t *testing.T) {
	sttP := &stubSTT{text: "please call me back, it's urgent"}
	toolArgs := `{"call_id": "call-1", "priority": "urgent", "callback_number": "+15559990000"}`
	llmP := &stubLLM{completions: []llm.Completion{
		{ToolCalls: []llm.ToolCall{{ID: "t1", Name: string(tools.CreateCallbackTask), Arguments: toolArgs}}},
		{Content: "I've created an urgent callback request for you."},
	}}
	ttsP := &stubTTS{}
	orch, st := newTestOrchestrator(t, sttP, llmP, ttsP)

	ctx := context.Background()
	if err := st.CreateCall(ctx, &model.Call{ID: "call-1", FromNumber: "+15551234567", Status: model.CallStatusConfirmation}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session, err := orch.StartSession(ctx, "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Drive to a state from which CREATE_CALLBACK_TASK is reachable.
	session.StateM.TransitionTo(statemachine.StateGreet)
	session.StateM.TransitionTo(statemachine.StateLanguageSelect)
	session.StateM.TransitionTo(statemachine.StateClassifyCustomerType)
	session.StateM.TransitionTo(statemachine.StateIntentDiscovery)
	session.StateM.TransitionTo(statemachine.StateConfirmation)

	if _, err := orch.ProcessAudio(ctx, session, bytes.NewReader([]byte("pcm-bytes"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.StateM.Current() != statemachine.StateCreateCallbackTask {
		t.Fatalf("expected CREATE_CALLBACK_TASK state, got %s", session.StateM.Current())
	}

	task, err := st.GetCallbackTaskByCallID(ctx, "call-1")
	if err != nil {
		t.Fatalf("expected a persisted callback task: %v", err)
	}
	if task.Priority != model.TaskPriorityUrgent {
		t.Fatalf("expected urgent priority, got %v", task.Priority)
	}
}

func TestProcessAudioSTTFailureDegradesToApology(t *testing.T) {
	sttP := &stubSTT{err: &callerr.VendorError{Kind: callerr.VendorTimeout, Err: errors.New("deepgram: timeout")}}
	llmP := &stubLLM{completions: []llm.Completion{{Content: "unused"}}}
	ttsP := &stubTTS{}
	orch, _ := newTestOrchestrator(t, sttP, llmP, ttsP)

	session, err := orch.StartSession(context.Background(), "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	audio, err := orch.ProcessAudio(context.Background(), session, bytes.NewReader([]byte("pcm-bytes")))
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}
	out, _ := io.ReadAll(audio)
	if len(out) == 0 {
		t.Fatal("expected a spoken apology")
	}
}

func TestHandleTimeoutForcesTransition(t *testing.T) {
	orch, _ := newTestOrchestrator(t, &stubSTT{}, &stubLLM{}, &stubTTS{})
	session, err := orch.StartSession(context.Background(), "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session.StateM.TransitionTo(statemachine.StateGreet)
	session.StateM.TransitionTo(statemachine.StateLanguageSelect)
	session.StateM.TransitionTo(statemachine.StateClassifyCustomerType)
	session.StateM.TransitionTo(statemachine.StateIntentDiscovery)

	prompt := orch.HandleTimeout(session)
	if prompt == "" {
		t.Fatal("expected a non-empty prompt after timeout")
	}
	if session.StateM.Current() != statemachine.StateTimeout {
		t.Fatalf("expected TIMEOUT state, got %s", session.StateM.Current())
	}
}

func TestEndSessionPersistsTranscript(t *testing.T) {
	orch, st := newTestOrchestrator(t, &stubSTT{}, &stubLLM{}, &stubTTS{})
	ctx := context.Background()
	session, err := orch.StartSession(ctx, "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orch.GenerateGreeting(session)

	stats, err := orch.EndSession(ctx, "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TurnCount == 0 {
		t.Fatal("expected at least one recorded turn")
	}
	if stats.Language == "" {
		t.Fatal("expected the summary to carry the call's language")
	}

	call, err := st.GetCall(ctx, "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.Transcript == nil || *call.Transcript == "" {
		t.Fatal("expected the transcript to be persisted on end")
	}

	again, err := orch.EndSession(ctx, "call-1")
	if err != nil {
		t.Fatalf("expected ending an already-ended session to succeed idempotently, got: %v", err)
	}
	if again.Status != StatusNoActiveSession {
		t.Fatalf("expected Status %q for an already-ended session, got %q", StatusNoActiveSession, again.Status)
	}
}
