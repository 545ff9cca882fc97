package stats

import (
	"context"
	"sync"
)

// MemoryRecorder counts events in memory.
// It never expires data; use it for tests and single-process deployments.
type MemoryRecorder struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		byRoute: make(map[string]Counters),
	}
}

// Record counts ev.
func (r *MemoryRecorder) Record(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.add(ev.Outcome, 1)
	if route := routeName(ev.Method, ev.Path); route != "" {
		c := r.byRoute[route]
		c.add(ev.Outcome, 1)
		r.byRoute[route] = c
	}
	return nil
}

// Totals returns the overall counters.
func (r *MemoryRecorder) Totals(context.Context) (Counters, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total, nil
}

// ByRoute returns a copy of the per-route counters.
func (r *MemoryRecorder) ByRoute() map[string]Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Counters, len(r.byRoute))
	for k, v := range r.byRoute {
		out[k] = v
	}
	return out
}

// Ping always succeeds.
func (r *MemoryRecorder) Ping(context.Context) error {
	return nil
}
