// Package model defines the persistent Call and CallbackTask records and
// their associated enums, shared by the store, tool dispatcher, and
// notification packages.
package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Language is the spoken language of a call.
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"
)

// IsValid reports whether l is one of the supported languages.
func (l Language) IsValid() bool {
	switch l {
	case LanguageEN, LanguageES:
		return true
	}
	return false
}

// CustomerType classifies the caller.
type CustomerType string

const (
	CustomerNew      CustomerType = "new"
	CustomerExisting CustomerType = "existing"
	CustomerUnknown  CustomerType = "unknown"
)

// CallStatus tracks where a Call is in its lifecycle. It is a superset of
// the session-only state-machine states: it also carries the terminal
// outcomes (completed/transferred/failed) recorded once a call ends.
type CallStatus string

const (
	CallStatusInit                   CallStatus = "init"
	CallStatusGreet                  CallStatus = "greet"
	CallStatusLanguageSelect         CallStatus = "language_select"
	CallStatusClassifyCustomerType   CallStatus = "classify_customer_type"
	CallStatusIntentDiscovery        CallStatus = "intent_discovery"
	CallStatusInfoCollection         CallStatus = "info_collection"
	CallStatusConfirmation           CallStatus = "confirmation"
	CallStatusCreateCallbackTask     CallStatus = "create_callback_task"
	CallStatusTransferOrWrapup       CallStatus = "transfer_or_wrapup"
	CallStatusEnd                    CallStatus = "end"
	CallStatusCompleted              CallStatus = "completed"
	CallStatusTransferred            CallStatus = "transferred"
	CallStatusFailed                 CallStatus = "failed"
)

// TaskStatus is the lifecycle of a CallbackTask.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority ranks a CallbackTask for notification and staff triage.
// Values are ordered so that higher means more urgent, matching the
// original P0-P3 numbering (URGENT=4 ... LOW=1).
type TaskPriority int

const (
	TaskPriorityLow    TaskPriority = 1
	TaskPriorityNormal TaskPriority = 2
	TaskPriorityHigh   TaskPriority = 3
	TaskPriorityUrgent TaskPriority = 4
)

// ParseTaskPriority maps the LLM-facing priority string to TaskPriority,
// defaulting to Normal for anything unrecognized.
func ParseTaskPriority(s string) TaskPriority {
	switch s {
	case "low":
		return TaskPriorityLow
	case "high":
		return TaskPriorityHigh
	case "urgent":
		return TaskPriorityUrgent
	default:
		return TaskPriorityNormal
	}
}

// Call is a single inbound call handled by the receptionist.
type Call struct {
	ID           string
	FromNumber   string
	Language     *Language
	CustomerType *CustomerType
	Intent       *string
	Status       CallStatus
	Summary      *string
	Transcript   *string
	Costs        map[string]float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CallbackTask is a follow-up task created for office staff.
type CallbackTask struct {
	ID             string
	CallID         string
	Priority       TaskPriority
	Assignee       *string
	Name           *string
	CallbackNumber string
	BestTimeWindow *string
	Notes          *string
	Status         TaskStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewID generates a lexically-sortable identifier for records that do not
// arrive with a stable identifier of their own (e.g. a telephony provider's
// CallSid). Call identifiers prefer the provider's own id; this is strictly
// a fallback.
func NewID() string {
	return ulid.Make().String()
}
