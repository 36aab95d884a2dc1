package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentplexus/receptionist/pkg/model"
	"github.com/agentplexus/receptionist/pkg/notify"
	"github.com/agentplexus/receptionist/pkg/providers/telephony"
	"github.com/agentplexus/receptionist/pkg/store"
)

// Status is the outcome of one tool execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// HandlerResult is returned by Dispatch and fed back to the LLM as a tool
// response message.
type HandlerResult struct {
	Status Status
	Data   map[string]any
	Error  string
	Tool   Name
}

// ToLLMResponse formats the result the way the follow-up LLM call expects
// to see it, mirroring the original's HandlerResult.to_llm_response.
func (r HandlerResult) ToLLMResponse() string {
	if r.Status == StatusSuccess {
		return fmt.Sprintf("Tool '%s' executed successfully. Result: %v", r.Tool, r.Data)
	}
	return fmt.Sprintf("Tool '%s' failed. Error: %s", r.Tool, r.Error)
}

// Dispatcher executes validated tool calls against the persistence layer,
// telephony provider, and notification service.
type Dispatcher struct {
	store     store.Store
	telephony telephony.Provider // optional: nil if this deployment never transfers calls
	notifier  *notify.Service
}

// NewDispatcher builds a Dispatcher. telephonyProvider may be nil.
func NewDispatcher(st store.Store, telephonyProvider telephony.Provider, notifier *notify.Service) *Dispatcher {
	return &Dispatcher{store: st, telephony: telephonyProvider, notifier: notifier}
}

// Dispatch validates raw against the named tool's argument schema and
// executes it. It never returns an error: every failure, whether
// malformed or disallowed input (a *ClientInputError /
// *SensitiveDataError) or a persistence/vendor failure, comes back as a
// HandlerResult with StatusFailure and the error text, which is reported
// to the LLM while the call proceeds.
func (d *Dispatcher) Dispatch(ctx context.Context, name Name, raw json.RawMessage) HandlerResult {
	switch name {
	case CreateCallRecord:
		return d.handleCreateCallRecord(ctx, raw)
	case UpdateCallRecord:
		return d.handleUpdateCallRecord(ctx, raw)
	case CreateCallbackTask:
		return d.handleCreateCallbackTask(ctx, raw)
	case TransferCall:
		return d.handleTransferCall(ctx, raw)
	case SendNotification:
		return d.handleSendNotification(ctx, raw)
	default:
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: unknownToolError(string(name)).Error(), Tool: name}
	}
}

func (d *Dispatcher) handleCreateCallRecord(ctx context.Context, raw json.RawMessage) HandlerResult {
	args, err := ParseCreateCallRecordArgs(raw)
	if err != nil {
		return failureResult(CreateCallRecord, err)
	}

	status := model.CallStatusInit
	if args.Status != nil {
		status = *args.Status
	}
	call := &model.Call{
		ID:           model.NewID(),
		FromNumber:   args.FromNumber,
		Language:     args.Language,
		CustomerType: args.CustomerType,
		Intent:       args.Intent,
		Status:       status,
	}
	if err := d.store.CreateCall(ctx, call); err != nil {
		return persistenceFailure(CreateCallRecord, err)
	}
	return HandlerResult{
		Status: StatusSuccess,
		Data:   map[string]any{"call_id": call.ID, "status": string(call.Status)},
		Tool:   CreateCallRecord,
	}
}

func (d *Dispatcher) handleUpdateCallRecord(ctx context.Context, raw json.RawMessage) HandlerResult {
	args, err := ParseUpdateCallRecordArgs(raw)
	if err != nil {
		return failureResult(UpdateCallRecord, err)
	}

	upd := store.CallUpdate{
		Language:     args.Language,
		CustomerType: args.CustomerType,
		Intent:       args.Intent,
		Status:       args.Status,
		Summary:      args.Summary,
		Transcript:   args.Transcript,
	}
	call, err := d.store.UpdateCall(ctx, args.CallID, upd)
	if errors.Is(err, store.ErrNotFound) {
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: fmt.Sprintf("Call not found: %s", args.CallID), Tool: UpdateCallRecord}
	}
	if err != nil {
		return persistenceFailure(UpdateCallRecord, err)
	}
	return HandlerResult{
		Status: StatusSuccess,
		Data:   map[string]any{"call_id": call.ID, "status": string(call.Status)},
		Tool:   UpdateCallRecord,
	}
}

func (d *Dispatcher) handleCreateCallbackTask(ctx context.Context, raw json.RawMessage) HandlerResult {
	args, err := ParseCreateCallbackTaskArgs(raw)
	if err != nil {
		return failureResult(CreateCallbackTask, err)
	}

	if _, err := d.store.GetCall(ctx, args.CallID); errors.Is(err, store.ErrNotFound) {
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: fmt.Sprintf("Call not found: %s", args.CallID), Tool: CreateCallbackTask}
	} else if err != nil {
		return persistenceFailure(CreateCallbackTask, err)
	}

	task := &model.CallbackTask{
		ID:             model.NewID(),
		CallID:         args.CallID,
		Priority:       args.Priority,
		Name:           args.Name,
		CallbackNumber: args.CallbackNumber,
		BestTimeWindow: args.BestTimeWindow,
		Notes:          args.Notes,
		Status:         model.TaskStatusPending,
	}
	if err := d.store.CreateCallbackTask(ctx, task); err != nil {
		return persistenceFailure(CreateCallbackTask, err)
	}

	if d.notifier != nil {
		call, err := d.store.GetCall(ctx, args.CallID)
		if err == nil {
			d.notifier.NotifyCallbackCreated(ctx, task, call)
		}
	}

	return HandlerResult{
		Status: StatusSuccess,
		Data:   map[string]any{"task_id": task.ID, "call_id": args.CallID},
		Tool:   CreateCallbackTask,
	}
}

func (d *Dispatcher) handleTransferCall(ctx context.Context, raw json.RawMessage) HandlerResult {
	args, err := ParseTransferCallArgs(raw)
	if err != nil {
		return failureResult(TransferCall, err)
	}

	if d.telephony == nil {
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: "Telephony adapter not configured", Tool: TransferCall}
	}

	target := args.Target()
	if err := d.telephony.TransferCall(ctx, args.CallID, target); err != nil {
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: "Transfer failed: " + err.Error(), Tool: TransferCall}
	}

	// Only mark the call TRANSFERRED once the provider has accepted the
	// transfer; a failed DB write after a successful transfer is
	// considered preferable to the reverse (see DESIGN.md Open Questions).
	transferred := model.CallStatusTransferred
	if _, err := d.store.UpdateCall(ctx, args.CallID, store.CallUpdate{Status: &transferred}); err != nil {
		return persistenceFailure(TransferCall, err)
	}

	return HandlerResult{
		Status: StatusSuccess,
		Data:   map[string]any{"call_id": args.CallID, "transferred_to": target},
		Tool:   TransferCall,
	}
}

func (d *Dispatcher) handleSendNotification(ctx context.Context, raw json.RawMessage) HandlerResult {
	args, err := ParseSendNotificationArgs(raw)
	if err != nil {
		return failureResult(SendNotification, err)
	}
	if d.notifier == nil {
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: "Notification service not configured", Tool: SendNotification}
	}

	var result notify.Result
	switch args.NotificationType {
	case "sms":
		result = d.notifier.SendSMS(ctx, args.Message, false)
	case "email":
		result = d.notifier.SendEmail(ctx, args.Recipient, "Notification from receptionist", args.Message, args.Message)
	}

	if !result.Success {
		return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: result.Error, Tool: SendNotification}
	}
	return HandlerResult{
		Status: StatusSuccess,
		Data:   map[string]any{"notification_type": args.NotificationType, "recipient": args.Recipient, "sent": true},
		Tool:   SendNotification,
	}
}

func failureResult(name Name, err error) HandlerResult {
	return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: err.Error(), Tool: name}
}

func persistenceFailure(name Name, err error) HandlerResult {
	return HandlerResult{Status: StatusFailure, Data: map[string]any{}, Error: fmt.Sprintf("persistence failure: %v", err), Tool: name}
}
