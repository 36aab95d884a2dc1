// Package stt defines the speech-to-text provider contract and a
// Deepgram-backed reference implementation, grounded on the teacher's
// pkg/callmanager.Manager.listen streaming loop.
package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	deepgram "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"

	"github.com/agentplexus/receptionist/pkg/callerr"
)

// TranscriptEvent is one incremental or final transcription result.
type TranscriptEvent struct {
	Text            string
	IsFinal         bool
	Confidence      float64
	DurationSeconds float64
}

// Result is the outcome of a complete, one-shot transcription, matching
// spec §6's `{text, confidence, language, duration_seconds}` contract.
type Result struct {
	Text            string
	Confidence      float64
	Language        string
	DurationSeconds float64
}

// Provider is the speech-to-text contract used by the orchestrator. Both
// methods take a context so a caller's deadline or cancellation can stop
// an in-flight call.
type Provider interface {
	// Transcribe converts a complete audio buffer to text in one call.
	Transcribe(ctx context.Context, audio io.Reader, language string) (Result, error)

	// TranscribeStream transcribes a live audio stream, delivering
	// incremental results on the returned channel until audio is
	// exhausted or ctx is cancelled.
	TranscribeStream(ctx context.Context, audio io.Reader, language string) (<-chan TranscriptEvent, error)
}

// DeepgramProvider implements Provider against Deepgram's streaming API.
type DeepgramProvider struct {
	client *deepgram.Client
	model  string
}

// NewDeepgramProvider builds a provider from an API key and model name
// (e.g. "nova-2"), matching the configuration shape of the teacher's
// config.Config.STTModel field.
func NewDeepgramProvider(apiKey, model string) (*DeepgramProvider, error) {
	c := interfaces.ClientOptions{APIKey: apiKey}
	client, err := deepgram.NewClientWithDefaults(c)
	if err != nil {
		return nil, fmt.Errorf("stt: new deepgram client: %w", err)
	}
	return &DeepgramProvider{client: client, model: model}, nil
}

// Transcribe reads audio to completion, rejecting a zero-length buffer
// up front per spec §6's *Empty* case, and returns the last final result
// the stream produced along with its confidence and processed duration.
func (p *DeepgramProvider) Transcribe(ctx context.Context, audio io.Reader, language string) (Result, error) {
	if !supportedLanguage(language) {
		return Result{}, &callerr.STTError{Kind: callerr.STTUnsupportedLanguage, Err: fmt.Errorf("stt: unsupported language %q", language)}
	}

	peek := make([]byte, 1)
	n, err := audio.Read(peek)
	if n == 0 {
		if err == nil || err == io.EOF {
			return Result{}, &callerr.STTError{Kind: callerr.STTEmpty, Err: fmt.Errorf("stt: empty audio buffer")}
		}
		return Result{}, &callerr.STTError{Kind: callerr.STTInvalidAudio, Err: err}
	}
	audio = io.MultiReader(strings.NewReader(string(peek[:n])), audio)

	events, err := p.TranscribeStream(ctx, audio, language)
	if err != nil {
		return Result{}, err
	}

	var result Result
	result.Language = language
	for ev := range events {
		result.DurationSeconds += ev.DurationSeconds
		if ev.IsFinal {
			result.Text = ev.Text
			result.Confidence = ev.Confidence
		}
	}
	return result, nil
}

func (p *DeepgramProvider) TranscribeStream(ctx context.Context, audio io.Reader, language string) (<-chan TranscriptEvent, error) {
	out := make(chan TranscriptEvent, 8)

	conn, err := p.client.ConnectWithCancel(ctx, nil, &deepgramListenHandler{out: out})
	if err != nil {
		close(out)
		return nil, &callerr.STTError{Kind: callerr.STTGeneric, Err: fmt.Errorf("stt: connect: %w", err)}
	}

	go func() {
		defer close(out)
		defer conn.Stop()
		buf := make([]byte, 4096)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, rerr := audio.Read(buf)
			if n > 0 {
				if werr := conn.WriteBinary(buf[:n]); werr != nil {
					return
				}
			}
			if rerr != nil {
				return
			}
		}
	}()

	return out, nil
}

func supportedLanguage(language string) bool {
	switch language {
	case "en", "es", "":
		return true
	default:
		return false
	}
}

// deepgramListenHandler implements the deepgram-go-sdk v3 listen client's
// LiveMessageCallback interface, translating its event callbacks into
// the channel-based TranscriptEvent stream the orchestrator consumes.
type deepgramListenHandler struct {
	out chan<- TranscriptEvent
}

func (h *deepgramListenHandler) Open(*interfaces.OpenResponse) error {
	return nil
}

// Message is invoked by the Deepgram SDK for each transcript result on
// the socket, carrying the per-alternative transcript, confidence, and
// the duration (seconds) of audio the result covers.
func (h *deepgramListenHandler) Message(mr *interfaces.MessageResponse) error {
	if mr == nil || len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	if strings.TrimSpace(alt.Transcript) == "" {
		return nil
	}
	h.out <- TranscriptEvent{
		Text:            alt.Transcript,
		IsFinal:         mr.IsFinal,
		Confidence:      alt.Confidence,
		DurationSeconds: mr.Duration,
	}
	return nil
}

func (h *deepgramListenHandler) Metadata(*interfaces.MetadataResponse) error {
	return nil
}

func (h *deepgramListenHandler) SpeechStarted(*interfaces.SpeechStartedResponse) error {
	return nil
}

func (h *deepgramListenHandler) UtteranceEnd(*interfaces.UtteranceEndResponse) error {
	return nil
}

func (h *deepgramListenHandler) Close(*interfaces.CloseResponse) error {
	return nil
}

func (h *deepgramListenHandler) Error(er *interfaces.ErrorResponse) error {
	return nil
}

func (h *deepgramListenHandler) UnhandledEvent([]byte) error {
	return nil
}
