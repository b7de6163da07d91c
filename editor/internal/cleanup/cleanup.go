// Package cleanup collects teardown functions registered during editor
// setup and runs them all on teardown. Every hook an editor module installs
// registers its removal here, so teardown is symmetric regardless of which
// setup steps actually ran.
package cleanup

import (
	"log/slog"
	"sync"
)

// Registry accumulates named teardown functions.
type Registry struct {
	mu     sync.Mutex
	names  []string
	fns    []func()
	logger *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register queues a teardown function. The name is used only for logging.
func (r *Registry) Register(name string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.fns = append(r.fns, fn)
}

// Run executes all registered teardowns in reverse registration order and
// clears the registry. A panicking teardown is logged and must not stop the
// rest.
func (r *Registry) Run() {
	r.mu.Lock()
	names, fns := r.names, r.fns
	r.names, r.fns = nil, nil
	r.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		func(name string, fn func()) {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("cleanup: teardown panicked", "name", name, "panic", rec)
				}
			}()
			fn()
		}(names[i], fns[i])
	}
}

// Len reports how many teardowns are pending.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fns)
}
