package store

import (
	"context"
	"testing"

	"github.com/agentplexus/receptionist/pkg/model"
)

func TestMemoryStoreCreateAndGetCall(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	call := &model.Call{ID: "call-1", FromNumber: "+15551234567", Status: model.CallStatusInit}
	if err := s.CreateCall(ctx, call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetCall(ctx, "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FromNumber != "+15551234567" {
		t.Fatalf("unexpected from_number: %q", got.FromNumber)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be populated")
	}
}

func TestMemoryStoreGetCallNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetCall(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateCallPartial(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	call := &model.Call{ID: "call-1", FromNumber: "+15551234567", Status: model.CallStatusInit}
	_ = s.CreateCall(ctx, call)

	intent := "schedule an appointment"
	status := model.CallStatusIntentDiscovery
	updated, err := s.UpdateCall(ctx, "call-1", CallUpdate{Intent: &intent, Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Intent == nil || *updated.Intent != intent {
		t.Fatalf("intent not applied: %+v", updated.Intent)
	}
	if updated.Status != status {
		t.Fatalf("status not applied: %v", updated.Status)
	}
	if updated.FromNumber != "+15551234567" {
		t.Fatal("unrelated field should be left untouched by a partial update")
	}
}

func TestMemoryStoreCreateCallbackTaskRequiresExistingCall(t *testing.T) {
	s := NewMemoryStore()
	task := &model.CallbackTask{ID: "task-1", CallID: "missing-call", CallbackNumber: "+15551234567"}
	if err := s.CreateCallbackTask(context.Background(), task); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreEnsureCallBySidIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	first, err := s.EnsureCallBySid(ctx, "CA123", "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.EnsureCallBySid(ctx, "CA123", "+15559999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.FromNumber != second.FromNumber {
		t.Fatalf("second EnsureCallBySid call should return the existing row, not overwrite it: %q vs %q", first.FromNumber, second.FromNumber)
	}
}
