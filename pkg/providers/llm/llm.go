// Package llm defines the LLM provider contract used by the orchestrator:
// a single-shot Complete call that returns either a text reply or a set
// of tool calls. It also provides StreamDeltaReassembler, which
// reassembles streamed tool-call argument deltas keyed by index; the
// Provider contract itself has no streaming method.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentplexus/receptionist/pkg/callerr"
)

// Role is a chat message's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the conversation sent to / received from the LLM.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string // set on RoleTool messages: which call this answers
	ToolCalls  []ToolCall
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// ToolSpec describes a callable tool's name, description, and JSON Schema
// input, in the shape the OpenAI function-calling API expects.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Completion is the result of one Complete call.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Provider is the LLM contract used by the orchestrator.
type Provider interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Completion, error)
}

// OpenAIProvider implements Provider against the OpenAI chat completions
// API with function calling.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider builds a provider from an API key and model name.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

func toOpenAITools(tools []ToolSpec) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  t.Parameters,
		}))
	}
	return out
}

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Completion{}, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("llm: empty choices in response")}
	}

	choice := resp.Choices[0].Message
	out := Completion{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// mapOpenAIError converts a vendor error into the shared taxonomy so no
// OpenAI-specific type crosses the provider boundary.
func mapOpenAIError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429"):
		return &callerr.VendorError{Kind: callerr.VendorRateLimit, Err: err}
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return &callerr.VendorError{Kind: callerr.VendorTimeout, Err: err}
	default:
		return &callerr.VendorError{Kind: callerr.VendorGeneric, Err: err}
	}
}

// StreamDeltaReassembler accumulates tool-call argument fragments received
// over a streaming completion, keyed by the tool call's index in the
// response (the wire protocol only guarantees the index is stable across
// chunks, not the id or name, which may arrive split across deltas).
type StreamDeltaReassembler struct {
	byIndex map[int64]*partialToolCall
}

type partialToolCall struct {
	id, name string
	args     strings.Builder
}

// NewStreamDeltaReassembler returns an empty reassembler.
func NewStreamDeltaReassembler() *StreamDeltaReassembler {
	return &StreamDeltaReassembler{byIndex: make(map[int64]*partialToolCall)}
}

// AddDelta folds one streamed fragment into the tool call at index.
func (r *StreamDeltaReassembler) AddDelta(index int64, id, name, argsFragment string) {
	p, ok := r.byIndex[index]
	if !ok {
		p = &partialToolCall{}
		r.byIndex[index] = p
	}
	if id != "" {
		p.id = id
	}
	if name != "" {
		p.name = name
	}
	p.args.WriteString(argsFragment)
}

// Finish returns the fully reassembled tool calls in index order.
func (r *StreamDeltaReassembler) Finish() []ToolCall {
	indices := make([]int64, 0, len(r.byIndex))
	for idx := range r.byIndex {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	out := make([]ToolCall, 0, len(indices))
	for _, idx := range indices {
		p := r.byIndex[idx]
		out = append(out, ToolCall{ID: p.id, Name: p.name, Arguments: p.args.String()})
	}
	return out
}
