package tools

import "github.com/agentplexus/receptionist/pkg/providers/llm"

// Specs returns the JSON-Schema tool definitions offered to the LLM on
// every completion call. The schemas describe exactly the fields each
// ParseXxxArgs function accepts, so a call that passes schema validation
// on the model side still has to clear the same checks again here — the
// schema narrows what the model is likely to send, it is not trusted as
// the sole gate.
func Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        string(CreateCallRecord),
			Description: "Create the persistent record for this call. Call this once, early, after the caller's language and phone number are known.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"from_number":   map[string]any{"type": "string"},
					"language":      map[string]any{"type": "string", "enum": []string{"en", "es"}},
					"customer_type": map[string]any{"type": "string", "enum": []string{"new", "existing", "unknown"}},
					"intent":        map[string]any{"type": "string"},
					"status":        map[string]any{"type": "string"},
				},
				"required": []string{"from_number"},
			},
		},
		{
			Name:        string(UpdateCallRecord),
			Description: "Update fields on an existing call record as new information is collected during the conversation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"call_id":       map[string]any{"type": "string"},
					"language":      map[string]any{"type": "string", "enum": []string{"en", "es"}},
					"customer_type": map[string]any{"type": "string", "enum": []string{"new", "existing", "unknown"}},
					"intent":        map[string]any{"type": "string"},
					"status":        map[string]any{"type": "string"},
					"summary":       map[string]any{"type": "string"},
					"transcript":    map[string]any{"type": "string"},
				},
				"required": []string{"call_id"},
			},
		},
		{
			Name:        string(CreateCallbackTask),
			Description: "Create a callback task for office staff when the caller needs a human to follow up. Never include sensitive data (SSNs, card numbers, passwords) in any field.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"call_id":          map[string]any{"type": "string"},
					"priority":         map[string]any{"type": "string", "enum": []string{"low", "normal", "high", "urgent"}},
					"name":             map[string]any{"type": "string"},
					"callback_number":  map[string]any{"type": "string"},
					"best_time_window": map[string]any{"type": "string"},
					"notes":            map[string]any{"type": "string"},
				},
				"required": []string{"call_id", "callback_number"},
			},
		},
		{
			Name:        string(TransferCall),
			Description: "Transfer the live call to a human, either a direct number or a named queue. Use when the caller explicitly asks for a person, or the request is outside what you can resolve.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"call_id":       map[string]any{"type": "string"},
					"target_number": map[string]any{"type": "string"},
					"queue_name":    map[string]any{"type": "string"},
					"reason":        map[string]any{"type": "string"},
				},
				"required": []string{"call_id", "reason"},
			},
		},
		{
			Name:        string(SendNotification),
			Description: "Send an ad-hoc SMS or email notification to staff, outside the normal callback-created flow.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"notification_type": map[string]any{"type": "string", "enum": []string{"sms", "email"}},
					"recipient":          map[string]any{"type": "string"},
					"message":            map[string]any{"type": "string"},
				},
				"required": []string{"notification_type", "message"},
			},
		},
	}
}
