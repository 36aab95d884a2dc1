// Package orchestrator drives a single call's turn loop: speech-to-text,
// an LLM completion (with tool calling), executing any requested tools,
// a follow-up completion, and text-to-speech — all coordinated against
// the call-flow state machine. It is grounded on the teacher's
// pkg/callmanager.Manager (the per-call mutex-guarded session object and
// retry-with-sleep idiom) and on original_source's
// agent/orchestrator/core.py (the phase sequencing and tool-call
// handling this package generalizes from a single hardcoded domain to
// the receptionist's).
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentplexus/receptionist/pkg/callerr"
	"github.com/agentplexus/receptionist/pkg/providers/llm"
	"github.com/agentplexus/receptionist/pkg/providers/stt"
	"github.com/agentplexus/receptionist/pkg/providers/tts"
	"github.com/agentplexus/receptionist/pkg/statemachine"
	"github.com/agentplexus/receptionist/pkg/store"
	"github.com/agentplexus/receptionist/pkg/tools"
	"github.com/agentplexus/receptionist/pkg/transcript"
)

// farewellPhrases are content heuristics that, once spoken by the
// assistant, are treated as a sign the conversation has genuinely
// concluded even if no tool call moved the state machine to StateEnd.
var farewellPhrases = []string{"have a great day", "goodbye", "que tenga un buen dia", "adios"}

// Orchestrator owns the set of active call sessions and the provider
// adapters every turn is run against.
type Orchestrator struct {
	store      store.Store
	sttP       stt.Provider
	llmP       llm.Provider
	ttsP       tts.Provider
	dispatcher *tools.Dispatcher
	config     SessionConfig
	logger     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds an Orchestrator. dispatcher must not be nil; providers may
// be nil only in tests that exercise paths not touching them (ProcessAudio
// will fail fast with a clear error rather than panic on a nil provider).
func New(st store.Store, sttP stt.Provider, llmP llm.Provider, ttsP tts.Provider, dispatcher *tools.Dispatcher, cfg SessionConfig, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      st,
		sttP:       sttP,
		llmP:       llmP,
		ttsP:       ttsP,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

// StartSession begins tracking a call, creating its persisted record if
// this is the first webhook seen for the CallSid. It rejects a second
// concurrent session for the same call id.
func (o *Orchestrator) StartSession(ctx context.Context, callID, fromNumber string) (*Session, error) {
	o.mu.Lock()
	if existing, ok := o.sessions[callID]; ok && existing.active {
		o.mu.Unlock()
		return nil, &callerr.SessionAlreadyActiveError{CallID: callID}
	}
	o.mu.Unlock()

	call, err := o.store.EnsureCallBySid(ctx, callID, fromNumber)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: ensure call record: %w", err)
	}

	session := newSession(call, o.config)
	o.mu.Lock()
	o.sessions[callID] = session
	o.mu.Unlock()

	o.logger.Info().Str("call_id", callID).Str("from_number", fromNumber).Msg("session started")
	return session, nil
}

// Session looks up a call's active session, if any.
func (o *Orchestrator) Session(callID string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[callID]
	return s, ok
}

// EndSession flushes the transcript to persistent storage and removes
// the session from the active set. It is idempotent: ending a call with
// no active session returns a Stats carrying StatusNoActiveSession
// rather than an error (webhooks may fire a final status event after a
// session already ended on its own, e.g. via a terminal state
// transition, and that is an expected condition, not a failure).
func (o *Orchestrator) EndSession(ctx context.Context, callID string) (Stats, error) {
	o.mu.Lock()
	session, ok := o.sessions[callID]
	if ok {
		delete(o.sessions, callID)
	}
	o.mu.Unlock()
	if !ok {
		return Stats{Status: StatusNoActiveSession}, nil
	}

	session.mu.Lock()
	session.active = false
	stats := session.stats()
	raw, saveErr := session.Transcript.Save()
	session.mu.Unlock()
	if saveErr != nil {
		return stats, fmt.Errorf("orchestrator: save transcript: %w", saveErr)
	}

	if _, err := o.store.UpdateCall(ctx, callID, store.CallUpdate{Transcript: &raw}); err != nil {
		return stats, fmt.Errorf("orchestrator: persist transcript: %w", err)
	}
	o.logger.Info().Str("call_id", callID).Int("turns", stats.TurnCount).Msg("session ended")
	return stats, nil
}

// GenerateGreeting produces the opening line for a freshly-started call,
// bypassing STT and the LLM entirely — the greeting is a fixed,
// state-machine-driven prompt, not a model generation.
func (o *Orchestrator) GenerateGreeting(session *Session) string {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.StateM.Current() == statemachine.StateInit {
		_ = session.StateM.TransitionTo(statemachine.StateGreet)
	}
	greeting := session.StateM.CurrentPrompt()
	session.recordTurn("assistant", greeting, LatencyMetrics{}, nil, nil)
	return greeting
}

// ProcessAudio runs one full conversation turn: transcribe the caller's
// audio, complete against the LLM (dispatching any tool calls it
// requests), synthesize the reply, and return it as audio. Each phase is
// retried independently up to Config.MaxRetryAttempts; a phase that
// exhausts its retries degrades to a spoken apology in the caller's
// language rather than aborting the call.
func (o *Orchestrator) ProcessAudio(ctx context.Context, session *Session, audioIn io.Reader) (io.Reader, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Exceeded() {
		session.StateM.HandleTimeout()
		return nil, &callerr.SessionTimeoutError{CallID: session.CallID}
	}

	lang := session.StateM.Language()

	sttStart := time.Now()
	result, sttErr := o.transcribeWithRetry(ctx, audioIn, lang)
	sttLatency := time.Since(sttStart)
	if sttErr != nil {
		o.logger.Warn().Err(sttErr).Str("call_id", session.CallID).Msg("stt phase failed")
		return o.speakApology(ctx, session, callerr.PhaseSTT)
	}
	confidence := result.Confidence
	durationMS := int(result.DurationSeconds * 1000)
	session.recordTurn("user", result.Text, LatencyMetrics{STT: sttLatency}, &confidence, &durationMS)
	session.History = append(session.History, llm.Message{Role: llm.RoleUser, Content: result.Text})

	reply, completionLatency, completionErr := o.runCompletionTurn(ctx, session)
	if completionErr != nil {
		o.logger.Warn().Err(completionErr).Str("call_id", session.CallID).Msg("llm phase failed")
		return o.speakApology(ctx, session, callerr.PhaseLLM)
	}

	o.maybeWrapUp(session, reply)

	ttsStart := time.Now()
	audioOut, ttsErr := o.synthesizeWithRetry(ctx, session, reply)
	completionLatency.TTS = time.Since(ttsStart)
	session.recordTurn("assistant", reply, completionLatency, nil, nil)
	session.History = append(session.History, llm.Message{Role: llm.RoleAssistant, Content: reply})
	if ttsErr != nil {
		o.logger.Warn().Err(ttsErr).Str("call_id", session.CallID).Msg("tts phase failed")
		return o.speakApology(ctx, session, callerr.PhaseTTS)
	}
	return audioOut, nil
}

// runCompletionTurn issues the primary LLM completion with tools
// offered, dispatches any tool calls it requests, and returns the final
// natural-language reply after a follow-up completion call (mirroring
// the original's two-pass tool_calls -> follow-up response shape). The
// returned LatencyMetrics carries only the LLM and Tool phases; the
// caller adds TTS, and STT latency is recorded on the caller's own turn.
func (o *Orchestrator) runCompletionTurn(ctx context.Context, session *Session) (string, LatencyMetrics, error) {
	var lat LatencyMetrics
	messages := o.buildMessages(session)

	start := time.Now()
	completion, err := o.generateWithRetry(ctx, messages, tools.Specs())
	lat.LLM += time.Since(start)
	if err != nil {
		return "", lat, err
	}
	if len(completion.ToolCalls) == 0 {
		return completion.Content, lat, nil
	}

	reply, toolLatency, followUpLatency, err := o.handleToolCalls(ctx, session, completion)
	lat.Tool += toolLatency
	lat.LLM += followUpLatency
	if err != nil {
		return "", lat, err
	}
	return reply, lat, nil
}

// handleToolCalls executes every tool call the model requested, applies
// any resulting state-machine transition, and issues one follow-up
// completion (with no tools offered) so the model can phrase a reply
// that accounts for what each tool call returned. It returns the reply
// plus how long dispatching tools and the follow-up completion each took.
func (o *Orchestrator) handleToolCalls(ctx context.Context, session *Session, completion llm.Completion) (string, time.Duration, time.Duration, error) {
	session.History = append(session.History, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   completion.Content,
		ToolCalls: completion.ToolCalls,
	})

	toolStart := time.Now()
	for _, tc := range completion.ToolCalls {
		result := o.dispatcher.Dispatch(ctx, tools.Name(tc.Name), json.RawMessage(tc.Arguments))
		o.updateStateMachine(session, tools.Name(tc.Name), result)
		session.History = append(session.History, llm.Message{
			Role:       llm.RoleTool,
			Content:    result.ToLLMResponse(),
			ToolCallID: tc.ID,
		})
		o.logger.Debug().Str("call_id", session.CallID).Str("tool", tc.Name).Str("status", string(result.Status)).Msg("tool call dispatched")
	}
	toolLatency := time.Since(toolStart)

	followUpStart := time.Now()
	followUp, err := o.generateWithRetry(ctx, o.buildMessages(session), nil)
	followUpLatency := time.Since(followUpStart)
	if err != nil {
		return "", toolLatency, followUpLatency, err
	}
	return followUp.Content, toolLatency, followUpLatency, nil
}

// updateStateMachine advances the call-flow state machine in reaction to
// a successfully executed tool call, mirroring original_source's
// _update_state_machine: only create_callback_task and transfer_call
// drive a transition, and only once the underlying effect succeeded.
func (o *Orchestrator) updateStateMachine(session *Session, name tools.Name, result tools.HandlerResult) {
	if result.Status != tools.StatusSuccess {
		return
	}
	var target statemachine.CallState
	switch name {
	case tools.CreateCallbackTask:
		target = statemachine.StateCreateCallbackTask
	case tools.TransferCall:
		target = statemachine.StateTransferOrWrapup
	default:
		return
	}
	if !session.StateM.CanTransitionTo(target) {
		return
	}
	if err := session.StateM.TransitionTo(target); err != nil {
		o.logger.Debug().Err(err).Str("call_id", session.CallID).Msg("tool-driven transition rejected")
	}
}

// maybeWrapUp transitions to StateEnd when the reply's content reads as
// a genuine sign-off, even though no tool call moved the state machine
// there — callers do say goodbye without the model invoking a tool.
func (o *Orchestrator) maybeWrapUp(session *Session, reply string) {
	lower := strings.ToLower(reply)
	for _, phrase := range farewellPhrases {
		if strings.Contains(lower, phrase) && session.StateM.CanTransitionTo(statemachine.StateEnd) {
			_ = session.StateM.TransitionTo(statemachine.StateEnd)
			return
		}
	}
}

// buildMessages rebuilds the system prompt from the state machine's
// current state and context on every completion call, then appends the
// session's running history — original_source rebuilds the system
// prompt per-turn rather than caching it, since it is a function of
// state that changes turn to turn.
func (o *Orchestrator) buildMessages(session *Session) []llm.Message {
	system := o.systemPrompt(session)
	out := make([]llm.Message, 0, len(session.History)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: system})
	out = append(out, session.History...)
	return out
}

func (o *Orchestrator) systemPrompt(session *Session) string {
	lang := session.StateM.Language()
	langName := "English"
	if lang == "es" {
		langName = "Spanish"
	}
	return fmt.Sprintf(
		"You are the phone receptionist for %s. Speak only %s. The current call stage is %q; its guidance to the caller is: %q. "+
			"Use the available tools to record what you learn about the caller and to create a callback task or transfer the call when appropriate. "+
			"Never ask for or repeat back sensitive data such as a social security number, date of birth, or payment card details.",
		o.config.BusinessName, langName, session.StateM.Current(), session.StateM.CurrentPrompt(),
	)
}

// speakApology degrades a failed phase to a spoken, bilingual apology
// rather than aborting the call outright, and records the failure by
// moving the state machine to StateError when that transition is legal.
func (o *Orchestrator) speakApology(ctx context.Context, session *Session, phase callerr.Phase) (io.Reader, error) {
	if session.StateM.CanTransitionTo(statemachine.StateError) {
		_ = session.StateM.TransitionTo(statemachine.StateError)
	}
	msg := getErrorMessage(phase, session.StateM.Language())
	session.recordTurn("assistant", msg, LatencyMetrics{}, nil, nil)
	session.History = append(session.History, llm.Message{Role: llm.RoleAssistant, Content: msg})

	audio, err := o.synthesizeWithRetry(ctx, session, msg)
	if err != nil {
		return nil, &callerr.PhaseFailureError{Phase: callerr.PhaseTTS, Attempts: o.config.MaxRetryAttempts, Err: err}
	}
	return audio, nil
}

// getErrorMessage returns the bilingual apology spoken when a phase
// fails after retry exhaustion, grounded on original_source's
// _get_error_message.
func getErrorMessage(phase callerr.Phase, lang string) string {
	messages := map[callerr.Phase]struct{ en, es string }{
		callerr.PhaseSTT: {
			en: "I'm sorry, I didn't catch that. Could you please repeat it?",
			es: "Lo siento, no entendi eso. Podria repetirlo por favor?",
		},
		callerr.PhaseLLM: {
			en: "I apologize, I'm having trouble processing that right now. Let me connect you with someone who can help.",
			es: "Disculpe, estoy teniendo problemas para procesar eso en este momento. Permitame conectarle con alguien que pueda ayudarle.",
		},
		callerr.PhaseTTS: {
			en: "I apologize for the technical difficulty.",
			es: "Disculpe la dificultad tecnica.",
		},
	}
	m, ok := messages[phase]
	if !ok {
		m = messages[callerr.PhaseLLM]
	}
	if lang == "es" {
		return m.es
	}
	return m.en
}

// HandleTimeout is invoked by the webhook layer when a provider-side
// no-input timer fires. It forces the privileged timeout transition and
// returns the prompt for the resulting state, to be spoken to the caller.
func (o *Orchestrator) HandleTimeout(session *Session) string {
	session.mu.Lock()
	defer session.mu.Unlock()
	target := session.StateM.HandleTimeout()
	prompt := session.StateM.CurrentPrompt()
	session.recordTurn("assistant", prompt, LatencyMetrics{}, nil, nil)
	o.logger.Info().Str("call_id", session.CallID).Str("target_state", string(target)).Msg("state timeout handled")
	return prompt
}

// GetTranscript returns the session's live transcript document.
func (o *Orchestrator) GetTranscript(session *Session) *transcript.Document {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.Transcript
}

// GetSessionStats summarizes the session for observability.
func (o *Orchestrator) GetSessionStats(session *Session) Stats {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.stats()
}

// --- retry helpers -----------------------------------------------------

func (o *Orchestrator) transcribeWithRetry(ctx context.Context, audio io.Reader, lang string) (stt.Result, error) {
	if o.sttP == nil {
		return stt.Result{}, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: errors.New("stt provider not configured")}
	}
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetryAttempts; attempt++ {
		result, err := o.sttP.Transcribe(ctx, audio, lang)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return stt.Result{}, err
		}
		if attempt < o.config.MaxRetryAttempts {
			sleep(ctx, o.config.RetryDelay)
		}
	}
	return stt.Result{}, &callerr.PhaseFailureError{Phase: callerr.PhaseSTT, Attempts: o.config.MaxRetryAttempts, Err: lastErr}
}

func (o *Orchestrator) generateWithRetry(ctx context.Context, messages []llm.Message, specs []llm.ToolSpec) (llm.Completion, error) {
	if o.llmP == nil {
		return llm.Completion{}, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: errors.New("llm provider not configured")}
	}
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetryAttempts; attempt++ {
		completion, err := o.llmP.Complete(ctx, messages, specs)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return llm.Completion{}, err
		}
		if attempt < o.config.MaxRetryAttempts {
			sleep(ctx, o.config.RetryDelay)
		}
	}
	return llm.Completion{}, &callerr.PhaseFailureError{Phase: callerr.PhaseLLM, Attempts: o.config.MaxRetryAttempts, Err: lastErr}
}

func (o *Orchestrator) synthesizeWithRetry(ctx context.Context, session *Session, text string) (io.Reader, error) {
	if o.ttsP == nil {
		return nil, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: errors.New("tts provider not configured")}
	}
	voice := o.config.DefaultVoiceEN
	if session.StateM.Language() == "es" {
		voice = o.config.DefaultVoiceES
	}
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetryAttempts; attempt++ {
		audio, err := o.ttsP.Synthesize(ctx, text, voice, tts.AudioFormat(o.config.AudioFormat))
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
		if attempt < o.config.MaxRetryAttempts {
			sleep(ctx, o.config.RetryDelay)
		}
	}
	return nil, &callerr.PhaseFailureError{Phase: callerr.PhaseTTS, Attempts: o.config.MaxRetryAttempts, Err: lastErr}
}

// isRetryable reports whether err is a transient vendor failure worth
// retrying, versus a client-input problem that would just fail the same
// way again.
func isRetryable(err error) bool {
	var vendorErr *callerr.VendorError
	if errors.As(err, &vendorErr) {
		return true
	}
	var sttErr *callerr.STTError
	if errors.As(err, &sttErr) {
		return sttErr.Retryable()
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
