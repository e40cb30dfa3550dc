package app

import (
	"fmt"
	"sort"
	"sync"
)

// MiddlewareRegistry collects middleware registrations made by modules
// before the host router boots. It is an explicitly scoped singleton owned
// by bootstrap, created at process start and cleared per test, never
// package-level state. No two modules may register the same middleware name.
type MiddlewareRegistry struct {
	mu      sync.Mutex
	entries map[string]string // middleware name -> owning module
}

// NewMiddlewareRegistry creates an empty middleware registry.
func NewMiddlewareRegistry() *MiddlewareRegistry {
	return &MiddlewareRegistry{
		entries: make(map[string]string),
	}
}

// Register claims a middleware name for a module. Duplicate registration
// from any module is a hard error at boot.
func (r *MiddlewareRegistry) Register(moduleName, middlewareName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.entries[middlewareName]; ok {
		return fmt.Errorf("middleware %q registered by both %q and %q", middlewareName, owner, moduleName)
	}
	r.entries[middlewareName] = moduleName
	return nil
}

// ListByModule returns the module's middleware names, sorted.
func (r *MiddlewareRegistry) ListByModule(moduleName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for name, owner := range r.entries {
		if owner == moduleName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// All returns every registered middleware name, sorted.
func (r *MiddlewareRegistry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveModule drops every registration owned by the module.
func (r *MiddlewareRegistry) RemoveModule(moduleName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for name, owner := range r.entries {
		if owner == moduleName {
			delete(r.entries, name)
			removed++
		}
	}
	return removed
}

// Reset clears all registrations (for tests).
func (r *MiddlewareRegistry) Reset() {
	r.mu.Lock()
	r.entries = make(map[string]string)
	r.mu.Unlock()
}
