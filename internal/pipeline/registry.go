package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks runs in flight in this process so they can be rejected or cancelled.
type Registry struct {
	mu   sync.Mutex
	runs map[uuid.UUID]context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[uuid.UUID]context.CancelFunc)}
}

// Start registers a run for id and returns its context. The returned func must
// be called when the run ends.
func (r *Registry) Start(parent context.Context, id uuid.UUID) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; ok {
		return nil, nil, ErrAlreadyProcessing
	}
	ctx, cancel := context.WithCancel(parent)
	r.runs[id] = cancel

	return ctx, func() {
		r.mu.Lock()
		delete(r.runs, id)
		r.mu.Unlock()
		cancel()
	}, nil
}

func (r *Registry) Running(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[id]
	return ok
}

// Cancel aborts the run for id. It reports whether one was in flight.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	cancel, ok := r.runs[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every run and returns how many there were.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.runs))
	for _, c := range r.runs {
		cancels = append(cancels, c)
	}
	r.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	return len(cancels)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
