package monitor

import (
	"sort"
	"sync"
)

// Registry tracks the running loops so their status can be reported.
type Registry struct {
	mu    sync.Mutex
	loops map[*Loop]struct{}
}

func NewRegistry() *Registry {
	return &Registry{loops: make(map[*Loop]struct{})}
}

func (r *Registry) Add(l *Loop) {
	r.mu.Lock()
	r.loops[l] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) Remove(l *Loop) {
	r.mu.Lock()
	delete(r.loops, l)
	r.mu.Unlock()
}

// Statuses returns the status of every registered loop ordered by controller id.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	out := make([]Status, 0, len(r.loops))
	for l := range r.loops {
		out = append(out, l.Status())
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ControllerID < out[j].ControllerID })
	return out
}
