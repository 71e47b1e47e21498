package step

import (
	"sync"

	"github.com/mensylisir/xmrecipe/errdefs"
)

// Registry maps step names to steps. Registering a name twice replaces the
// earlier step.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string
}

func NewRegistry(steps ...Step) *Registry {
	r := &Registry{steps: make(map[string]Step, len(steps))}
	for _, s := range steps {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Metadata().Name
	if _, exists := r.steps[name]; !exists {
		r.order = append(r.order, name)
	}
	r.steps[name] = s
}

// Lookup returns the step registered under name, or an
// errdefs.ErrStepNotFound error listing the valid names.
func (r *Registry) Lookup(name string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.steps[name]; ok {
		return s, nil
	}
	return nil, errdefs.StepNotFound(name, r.namesLocked())
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}
