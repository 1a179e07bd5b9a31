package registry

import (
	"fmt"
	"sync"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Registry maps custom node kinds to their executors. Registration is
// expected at startup but is safe at any time.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]ports.CustomExecutor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]ports.CustomExecutor)}
}

func (r *Registry) Register(kind string, executor ports.CustomExecutor) error {
	if kind == "" {
		return fmt.Errorf("custom node kind is required: %w", domain.ErrInvalidConfig)
	}
	if executor == nil {
		return fmt.Errorf("custom node %q has no executor: %w", kind, domain.ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[kind]; exists {
		return fmt.Errorf("custom node %q already registered: %w", kind, domain.ErrInvalidConfig)
	}
	r.executors[kind] = executor
	return nil
}

func (r *Registry) Resolve(kind string) (ports.CustomExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[kind]
	return executor, ok
}
