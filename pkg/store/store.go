// Package store persists Call and CallbackTask records. It exposes a
// single Store interface with two implementations: a Postgres-backed one
// for production, grounded on the relational schema in the original
// implementation, and an in-memory one (mutex-guarded maps, mirroring the
// teacher's CallState map pattern) for tests and local development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agentplexus/receptionist/pkg/model"
)

// ErrNotFound is returned when a lookup by id finds nothing.
var ErrNotFound = errors.New("store: record not found")

// CallUpdate carries the partial-update fields accepted by UpdateCall; a
// nil field leaves the corresponding column untouched.
type CallUpdate struct {
	Language     *model.Language
	CustomerType *model.CustomerType
	Intent       *string
	Status       *model.CallStatus
	Summary      *string
	Transcript   *string
	Costs        map[string]float64
}

// Store is the persistence contract used by the tool dispatcher and the
// webhook layer. Every write is expected to be a single transaction;
// implementations must not partially apply a Create/Update.
type Store interface {
	CreateCall(ctx context.Context, call *model.Call) error
	GetCall(ctx context.Context, id string) (*model.Call, error)
	UpdateCall(ctx context.Context, id string, upd CallUpdate) (*model.Call, error)

	CreateCallbackTask(ctx context.Context, task *model.CallbackTask) error
	GetCallbackTaskByCallID(ctx context.Context, callID string) (*model.CallbackTask, error)

	// EnsureCallBySid upserts a minimal Call row the moment a provider
	// webhook reports a new CallSid, before any tool call has run.
	EnsureCallBySid(ctx context.Context, sid, fromNumber string) (*model.Call, error)
}

func now() time.Time { return time.Now().UTC() }
