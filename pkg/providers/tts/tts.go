// Package tts defines the text-to-speech provider contract and an
// ElevenLabs-backed reference implementation, grounded on the teacher's
// pkg/callmanager.Manager.speak streaming loop.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"

	elevenlabs "github.com/plexusone/elevenlabs-go"

	"github.com/agentplexus/receptionist/pkg/callerr"
)

// AudioFormat is the output encoding requested from the provider.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatPCM  AudioFormat = "pcm"
	FormatULaw AudioFormat = "ulaw"
)

// Voice describes a synthesizable voice as reported by the provider.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// Provider is the text-to-speech contract used by the orchestrator.
type Provider interface {
	// Synthesize renders text to audio in the given voice and format.
	Synthesize(ctx context.Context, text, voice string, format AudioFormat) (io.Reader, error)

	// GetAvailableVoices lists the voices this provider can synthesize.
	GetAvailableVoices(ctx context.Context) ([]Voice, error)
}

// ElevenLabsProvider implements Provider against the ElevenLabs API.
type ElevenLabsProvider struct {
	client *elevenlabs.Client
	model  string
}

// NewElevenLabsProvider builds a provider from an API key and model id
// (e.g. "eleven_multilingual_v2"), matching config.Config.TTSModel.
func NewElevenLabsProvider(apiKey, model string) *ElevenLabsProvider {
	return &ElevenLabsProvider{client: elevenlabs.NewClient(apiKey), model: model}
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, voice string, format AudioFormat) (io.Reader, error) {
	audio, err := p.client.TextToSpeech(ctx, voice, elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: p.model,
		Format:  string(format),
	})
	if err != nil {
		return nil, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("tts: synthesize: %w", err)}
	}
	return bytes.NewReader(audio), nil
}

func (p *ElevenLabsProvider) GetAvailableVoices(ctx context.Context) ([]Voice, error) {
	voices, err := p.client.ListVoices(ctx)
	if err != nil {
		return nil, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("tts: list voices: %w", err)}
	}
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		out = append(out, Voice{ID: v.VoiceID, Name: v.Name, Language: v.Language})
	}
	return out, nil
}
