package orchestrator

import (
	"sync"
	"time"

	"github.com/agentplexus/receptionist/pkg/model"
	"github.com/agentplexus/receptionist/pkg/providers/llm"
	"github.com/agentplexus/receptionist/pkg/statemachine"
	"github.com/agentplexus/receptionist/pkg/transcript"
)

// ConversationTurn records one exchange for session statistics, distinct
// from transcript.Turn which is the persisted document representation.
type ConversationTurn struct {
	Role      string
	Content   string
	Timestamp time.Time
	Latency   LatencyMetrics
}

// LatencyMetrics tracks how long each phase of a turn took, so operators
// can compare against SessionConfig.TargetLatency, matching spec §3's
// ConversationTurn.latency {stt, llm, tts, tool, total}.
type LatencyMetrics struct {
	STT  time.Duration
	LLM  time.Duration
	TTS  time.Duration
	Tool time.Duration
}

func (l LatencyMetrics) Total() time.Duration { return l.STT + l.LLM + l.TTS + l.Tool }

// Session is the live, in-memory state for one active call. It is
// grounded on the teacher's mutex-guarded CallState (pkg/callmanager):
// one struct per call, all mutation behind a single mutex, since webhook
// and orchestrator goroutines can race on non-terminal fields.
type Session struct {
	mu sync.Mutex

	CallID     string
	Call       *model.Call
	Config     SessionConfig
	StateM     *statemachine.StateMachine
	Transcript *transcript.Document
	History    []llm.Message

	startedAt time.Time
	active    bool
	turns     []ConversationTurn
}

func newSession(call *model.Call, cfg SessionConfig) *Session {
	now := time.Now()
	sm := statemachine.New(call.ID)
	return &Session{
		CallID:     call.ID,
		Call:       call,
		Config:     cfg,
		StateM:     sm,
		Transcript: transcript.New(sm.Language(), now),
		startedAt:  now,
		active:     true,
	}
}

// Duration reports how long the session has been active.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startedAt)
}

// Exceeded reports whether the session has run past its configured
// maximum duration.
func (s *Session) Exceeded() bool {
	return s.Duration() > s.Config.MaxDuration
}

// speakerFor maps a ConversationTurn/LLM-history role onto the transcript
// wire vocabulary ("agent"|"caller"|"system") spec §6 mandates.
func speakerFor(role string) string {
	switch role {
	case "assistant":
		return "agent"
	case "user":
		return "caller"
	default:
		return "system"
	}
}

// recordTurn appends to both the in-memory stats log and the persisted
// transcript document. confidence and durationMS are the STT
// measurements for a caller turn; pass nil for turns that never went
// through STT (the agent's own utterances, system events).
func (s *Session) recordTurn(role, content string, latency LatencyMetrics, confidence *float64, durationMS *int) {
	now := time.Now()
	s.turns = append(s.turns, ConversationTurn{Role: role, Content: content, Timestamp: now, Latency: latency})
	s.Transcript.Append(speakerFor(role), content, now, confidence, durationMS)
}

// StatusNoActiveSession is the sentinel Stats.Status value returned by
// EndSession when called on a call with no active session, matching
// spec.md's `{status: "no_active_session"}` contract.
const StatusNoActiveSession = "no_active_session"

// Stats summarizes the session for observability, mirroring the
// original's get_session_stats. Status is empty for a normal summary; it
// is set to StatusNoActiveSession for the idempotent EndSession path,
// matching spec.md's `{status: "no_active_session"}` sentinel rather
// than signaling that case as an error.
type Stats struct {
	Status         string
	CallID         string
	Language       string
	TurnCount      int
	DurationSecs   float64
	AverageLatency time.Duration
	CurrentState   statemachine.CallState
}

func (s *Session) stats() Stats {
	var total time.Duration
	for _, t := range s.turns {
		total += t.Latency.Total()
	}
	avg := time.Duration(0)
	if len(s.turns) > 0 {
		avg = total / time.Duration(len(s.turns))
	}
	return Stats{
		CallID:         s.CallID,
		Language:       s.StateM.Language(),
		TurnCount:      len(s.turns),
		DurationSecs:   s.Duration().Seconds(),
		AverageLatency: avg,
		CurrentState:   s.StateM.Current(),
	}
}
