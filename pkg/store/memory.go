package store

import (
	"context"
	"sync"

	"github.com/agentplexus/receptionist/pkg/model"
)

// MemoryStore is an in-process Store backed by mutex-guarded maps. It is
// grounded on the teacher's CallState map pattern (pkg/callmanager): a
// single RWMutex guarding both collections, copy-out on read so callers never hold a
// pointer into the map's internals.
type MemoryStore struct {
	mu    sync.RWMutex
	calls map[string]*model.Call
	tasks map[string]*model.CallbackTask // keyed by call id, one task per call
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls: make(map[string]*model.Call),
		tasks: make(map[string]*model.CallbackTask),
	}
}

func cloneCall(c *model.Call) *model.Call {
	cp := *c
	if c.Costs != nil {
		cp.Costs = make(map[string]float64, len(c.Costs))
		for k, v := range c.Costs {
			cp.Costs[k] = v
		}
	}
	return &cp
}

func cloneTask(t *model.CallbackTask) *model.CallbackTask {
	cp := *t
	return &cp
}

func (s *MemoryStore) CreateCall(ctx context.Context, call *model.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if call.CreatedAt.IsZero() {
		call.CreatedAt = now()
	}
	call.UpdatedAt = call.CreatedAt
	s.calls[call.ID] = cloneCall(call)
	return nil
}

func (s *MemoryStore) GetCall(ctx context.Context, id string) (*model.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCall(c), nil
}

func (s *MemoryStore) UpdateCall(ctx context.Context, id string, upd CallUpdate) (*model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Language != nil {
		c.Language = upd.Language
	}
	if upd.CustomerType != nil {
		c.CustomerType = upd.CustomerType
	}
	if upd.Intent != nil {
		c.Intent = upd.Intent
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.Summary != nil {
		c.Summary = upd.Summary
	}
	if upd.Transcript != nil {
		c.Transcript = upd.Transcript
	}
	if upd.Costs != nil {
		c.Costs = upd.Costs
	}
	c.UpdatedAt = now()
	s.calls[id] = c
	return cloneCall(c), nil
}

func (s *MemoryStore) CreateCallbackTask(ctx context.Context, task *model.CallbackTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calls[task.CallID]; !ok {
		return ErrNotFound
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now()
	}
	task.UpdatedAt = task.CreatedAt
	s.tasks[task.CallID] = cloneTask(task)
	return nil
}

func (s *MemoryStore) GetCallbackTaskByCallID(ctx context.Context, callID string) (*model.CallbackTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[callID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTask(t), nil
}

func (s *MemoryStore) EnsureCallBySid(ctx context.Context, sid, fromNumber string) (*model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.calls[sid]; ok {
		return cloneCall(c), nil
	}
	c := &model.Call{
		ID:         sid,
		FromNumber: fromNumber,
		Status:     model.CallStatusInit,
		CreatedAt:  now(),
	}
	c.UpdatedAt = c.CreatedAt
	s.calls[sid] = c
	return cloneCall(c), nil
}

var _ Store = (*MemoryStore)(nil)
