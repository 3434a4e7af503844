package audit

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository used in tests.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event

	// FailWith, when set, makes Append return it. Used to test that the
	// recorder swallows storage failures.
	FailWith error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
