package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentplexus/receptionist/pkg/model"
	"github.com/agentplexus/receptionist/pkg/store"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewDispatcher(st, nil, nil), st
}

func TestDispatchCreateCallRecord(t *testing.T) {
	d, st := newTestDispatcher(t)
	raw := json.RawMessage(`{"from_number": "+15551234567", "language": "en", "intent": "schedule an appointment"}`)

	result := d.Dispatch(context.Background(), CreateCallRecord, raw)
	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	callID, _ := result.Data["call_id"].(string)
	if callID == "" {
		t.Fatal("expected a call_id in the result")
	}
	if _, err := st.GetCall(context.Background(), callID); err != nil {
		t.Fatalf("call should be persisted: %v", err)
	}
}

func TestDispatchCreateCallRecordRejectsSensitiveIntent(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw := json.RawMessage(`{"from_number": "+15551234567", "intent": "caller gave me their ssn"}`)

	result := d.Dispatch(context.Background(), CreateCallRecord, raw)
	if result.Status != StatusFailure {
		t.Fatalf("expected failure for sensitive intent, got %+v", result)
	}
}

func TestDispatchCreateCallRecordRejectsBadPhoneNumber(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw := json.RawMessage(`{"from_number": "call me maybe"}`)

	result := d.Dispatch(context.Background(), CreateCallRecord, raw)
	if result.Status != StatusFailure {
		t.Fatalf("expected failure for malformed phone number, got %+v", result)
	}
}

func TestDispatchCreateCallbackTaskRequiresExistingCall(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw := json.RawMessage(`{"call_id": "missing", "callback_number": "+15551234567"}`)

	result := d.Dispatch(context.Background(), CreateCallbackTask, raw)
	if result.Status != StatusFailure {
		t.Fatalf("expected failure for missing call, got %+v", result)
	}
}

func TestDispatchCreateCallbackTaskSuccess(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()
	call := &model.Call{ID: "call-1", FromNumber: "+15551234567", Status: model.CallStatusInfoCollection}
	_ = st.CreateCall(ctx, call)

	raw := json.RawMessage(`{"call_id": "call-1", "priority": "urgent", "callback_number": "+15551234567", "name": "Jamie"}`)
	result := d.Dispatch(ctx, CreateCallbackTask, raw)
	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}

	task, err := st.GetCallbackTaskByCallID(ctx, "call-1")
	if err != nil {
		t.Fatalf("expected a persisted callback task: %v", err)
	}
	if task.Priority != model.TaskPriorityUrgent {
		t.Fatalf("expected urgent priority, got %v", task.Priority)
	}
}

func TestDispatchTransferCallWithoutTelephonyConfigured(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()
	_ = st.CreateCall(ctx, &model.Call{ID: "call-1", FromNumber: "+15551234567", Status: model.CallStatusTransferOrWrapup})

	raw := json.RawMessage(`{"call_id": "call-1", "target_number": "+15559990000", "reason": "needs a human"}`)
	result := d.Dispatch(ctx, TransferCall, raw)
	if result.Status != StatusFailure {
		t.Fatalf("expected failure without a telephony provider, got %+v", result)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d, _ := newTestDispatcher(t)
	result := d.Dispatch(context.Background(), Name("not_a_real_tool"), json.RawMessage(`{}`))
	if result.Status != StatusFailure {
		t.Fatal("expected failure for an unknown tool name")
	}
}

func TestHandlerResultToLLMResponseFormats(t *testing.T) {
	success := HandlerResult{Status: StatusSuccess, Data: map[string]any{"call_id": "call-1"}, Tool: CreateCallRecord}
	if got := success.ToLLMResponse(); got == "" {
		t.Fatal("expected non-empty response")
	}

	failure := HandlerResult{Status: StatusFailure, Error: "boom", Tool: CreateCallRecord}
	got := failure.ToLLMResponse()
	if got == "" {
		t.Fatal("expected non-empty response")
	}
}
