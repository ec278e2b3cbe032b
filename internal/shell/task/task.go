// Package task provides the deployment tasks that subscribe to lifecycle
// events, and the registry the bootstrapper builds them from.
package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/stagehand/internal/core/events"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrUnknownTask     = errors.New("unknown task")
	ErrDuplicateTask   = errors.New("task already registered")
	ErrUnexpectedEvent = errors.New("unexpected event payload")
)

// =============================================================================
// Task
// =============================================================================

// Task is a deployment step. Its subscriptions are fixed at construction and
// registered with the dispatcher once, before any event is dispatched.
type Task interface {
	events.Subscriber

	// Name returns the registry name of the task.
	Name() string
}

// Factory builds a task from its configured options.
type Factory func(options map[string]any) (Task, error)

// =============================================================================
// Registry
// =============================================================================

// Registry maps task names used in configuration to their factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in task.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(MaintenanceModeTaskName, NewMaintenanceModeTaskFromOptions)
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("register task %q: name and factory are required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	r.factories[name] = factory
	return nil
}

// Build creates the named task from options.
func (r *Registry) Build(name string, options map[string]any) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	t, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("build task %s: %w", name, err)
	}
	return t, nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
