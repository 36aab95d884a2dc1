// Package tools implements the tool-call dispatcher: one validating Go
// type per LLM-callable tool (a statically-typed sum type, replacing the
// original's dynamic dict-of-callables plus Pydantic validation, per
// spec.md's Design Notes §9), and a single Dispatch entry point.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/agentplexus/receptionist/pkg/model"
)

// Name identifies which tool a dispatched call invokes.
type Name string

const (
	CreateCallRecord   Name = "create_call_record"
	UpdateCallRecord   Name = "update_call_record"
	CreateCallbackTask Name = "create_callback_task"
	TransferCall       Name = "transfer_call"
	SendNotification   Name = "send_notification"
)

// CreateCallRecordArgs constructs a new Call record.
type CreateCallRecordArgs struct {
	FromNumber   string
	Language     *model.Language
	CustomerType *model.CustomerType
	Intent       *string
	Status       *model.CallStatus
}

type createCallRecordWire struct {
	FromNumber   string  `json:"from_number"`
	Language     *string `json:"language"`
	CustomerType *string `json:"customer_type"`
	Intent       *string `json:"intent"`
	Status       *string `json:"status"`
}

// ParseCreateCallRecordArgs validates and constructs CreateCallRecordArgs
// from the LLM's raw JSON tool-call arguments.
func ParseCreateCallRecordArgs(raw json.RawMessage) (CreateCallRecordArgs, error) {
	var w createCallRecordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return CreateCallRecordArgs{}, &ClientInputError{Field: "arguments", Msg: "invalid JSON: " + err.Error()}
	}
	if err := validatePhoneNumber("from_number", w.FromNumber); err != nil {
		return CreateCallRecordArgs{}, err
	}
	if w.Intent != nil {
		if len(*w.Intent) == 0 || len(*w.Intent) > 1000 {
			return CreateCallRecordArgs{}, &ClientInputError{Field: "intent", Msg: "must be 1-1000 characters"}
		}
		if err := validateNoSensitiveData("intent", *w.Intent); err != nil {
			return CreateCallRecordArgs{}, err
		}
	}
	args := CreateCallRecordArgs{FromNumber: w.FromNumber, Intent: w.Intent}
	if w.Language != nil {
		l := model.Language(*w.Language)
		if !l.IsValid() {
			return CreateCallRecordArgs{}, &ClientInputError{Field: "language", Msg: "must be 'en' or 'es'"}
		}
		args.Language = &l
	}
	if w.CustomerType != nil {
		ct := model.CustomerType(*w.CustomerType)
		args.CustomerType = &ct
	}
	if w.Status != nil {
		st := model.CallStatus(*w.Status)
		args.Status = &st
	}
	return args, nil
}

// UpdateCallRecordArgs is an all-optional partial update to an existing Call.
type UpdateCallRecordArgs struct {
	CallID       string
	Language     *model.Language
	CustomerType *model.CustomerType
	Intent       *string
	Status       *model.CallStatus
	Summary      *string
	Transcript   *string
}

type updateCallRecordWire struct {
	CallID       string  `json:"call_id"`
	Language     *string `json:"language"`
	CustomerType *string `json:"customer_type"`
	Intent       *string `json:"intent"`
	Status       *string `json:"status"`
	Summary      *string `json:"summary"`
	Transcript   *string `json:"transcript"`
}

// ParseUpdateCallRecordArgs validates and constructs UpdateCallRecordArgs.
func ParseUpdateCallRecordArgs(raw json.RawMessage) (UpdateCallRecordArgs, error) {
	var w updateCallRecordWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return UpdateCallRecordArgs{}, &ClientInputError{Field: "arguments", Msg: "invalid JSON: " + err.Error()}
	}
	if w.CallID == "" {
		return UpdateCallRecordArgs{}, &ClientInputError{Field: "call_id", Msg: "is required"}
	}
	if w.Intent != nil {
		if err := validateNoSensitiveData("intent", *w.Intent); err != nil {
			return UpdateCallRecordArgs{}, err
		}
	}
	if w.Summary != nil {
		if err := validateNoSensitiveData("summary", *w.Summary); err != nil {
			return UpdateCallRecordArgs{}, err
		}
	}
	args := UpdateCallRecordArgs{
		CallID:     w.CallID,
		Intent:     w.Intent,
		Summary:    w.Summary,
		Transcript: w.Transcript,
	}
	if w.Language != nil {
		l := model.Language(*w.Language)
		args.Language = &l
	}
	if w.CustomerType != nil {
		ct := model.CustomerType(*w.CustomerType)
		args.CustomerType = &ct
	}
	if w.Status != nil {
		st := model.CallStatus(*w.Status)
		args.Status = &st
	}
	return args, nil
}

// CreateCallbackTaskArgs creates a follow-up task for office staff.
type CreateCallbackTaskArgs struct {
	CallID         string
	Priority       model.TaskPriority
	Name           *string
	CallbackNumber string
	BestTimeWindow *string
	Notes          *string
}

type createCallbackTaskWire struct {
	CallID         string  `json:"call_id"`
	Priority       *string `json:"priority"`
	Name           *string `json:"name"`
	CallbackNumber string  `json:"callback_number"`
	BestTimeWindow *string `json:"best_time_window"`
	Notes          *string `json:"notes"`
}

// ParseCreateCallbackTaskArgs validates and constructs CreateCallbackTaskArgs.
func ParseCreateCallbackTaskArgs(raw json.RawMessage) (CreateCallbackTaskArgs, error) {
	var w createCallbackTaskWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return CreateCallbackTaskArgs{}, &ClientInputError{Field: "arguments", Msg: "invalid JSON: " + err.Error()}
	}
	if w.CallID == "" {
		return CreateCallbackTaskArgs{}, &ClientInputError{Field: "call_id", Msg: "is required"}
	}
	if err := validatePhoneNumber("callback_number", w.CallbackNumber); err != nil {
		return CreateCallbackTaskArgs{}, err
	}
	if w.Notes != nil {
		if err := validateNoSensitiveData("notes", *w.Notes); err != nil {
			return CreateCallbackTaskArgs{}, err
		}
	}
	if w.Name != nil {
		if err := validateNoSensitiveData("name", *w.Name); err != nil {
			return CreateCallbackTaskArgs{}, err
		}
	}
	priority := model.TaskPriorityNormal
	if w.Priority != nil {
		priority = model.ParseTaskPriority(*w.Priority)
	}
	return CreateCallbackTaskArgs{
		CallID:         w.CallID,
		Priority:       priority,
		Name:           w.Name,
		CallbackNumber: w.CallbackNumber,
		BestTimeWindow: w.BestTimeWindow,
		Notes:          w.Notes,
	}, nil
}

// TransferCallArgs bridges a live call to a human.
type TransferCallArgs struct {
	CallID       string
	TargetNumber string
	QueueName    string
	Reason       string
}

type transferCallWire struct {
	CallID       string `json:"call_id"`
	TargetNumber string `json:"target_number"`
	QueueName    string `json:"queue_name"`
	Reason       string `json:"reason"`
}

// ParseTransferCallArgs validates and constructs TransferCallArgs.
func ParseTransferCallArgs(raw json.RawMessage) (TransferCallArgs, error) {
	var w transferCallWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return TransferCallArgs{}, &ClientInputError{Field: "arguments", Msg: "invalid JSON: " + err.Error()}
	}
	if w.CallID == "" {
		return TransferCallArgs{}, &ClientInputError{Field: "call_id", Msg: "is required"}
	}
	if w.TargetNumber == "" && w.QueueName == "" {
		return TransferCallArgs{}, &ClientInputError{Field: "target_number", Msg: "either target_number or queue_name must be provided"}
	}
	if w.Reason == "" {
		return TransferCallArgs{}, &ClientInputError{Field: "reason", Msg: "is required"}
	}
	return TransferCallArgs{
		CallID:       w.CallID,
		TargetNumber: w.TargetNumber,
		QueueName:    w.QueueName,
		Reason:       w.Reason,
	}, nil
}

// Target returns the transfer destination, preferring an explicit number
// over a named queue.
func (a TransferCallArgs) Target() string {
	if a.TargetNumber != "" {
		return a.TargetNumber
	}
	return a.QueueName
}

// SendNotificationArgs asks the notification service to alert staff.
type SendNotificationArgs struct {
	NotificationType string // "sms" or "email"
	Recipient        string
	Message          string
}

type sendNotificationWire struct {
	NotificationType string `json:"notification_type"`
	Recipient        string `json:"recipient"`
	Message          string `json:"message"`
}

// ParseSendNotificationArgs validates and constructs SendNotificationArgs.
func ParseSendNotificationArgs(raw json.RawMessage) (SendNotificationArgs, error) {
	var w sendNotificationWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return SendNotificationArgs{}, &ClientInputError{Field: "arguments", Msg: "invalid JSON: " + err.Error()}
	}
	if w.NotificationType != "sms" && w.NotificationType != "email" {
		return SendNotificationArgs{}, &ClientInputError{Field: "notification_type", Msg: "must be 'sms' or 'email'"}
	}
	if err := validateNoSensitiveData("message", w.Message); err != nil {
		return SendNotificationArgs{}, err
	}
	return SendNotificationArgs{
		NotificationType: w.NotificationType,
		Recipient:        w.Recipient,
		Message:          w.Message,
	}, nil
}

// unknownToolError wraps a tool-name-unknown condition in the same shape as the
// per-tool parse errors, so callers have one error type to branch on.
func unknownToolError(name string) error {
	return &ClientInputError{Field: "tool_name", Msg: fmt.Sprintf("unknown tool: %s", name)}
}
