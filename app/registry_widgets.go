package app

import (
	"fmt"
	"sync"

	"github.com/fazaimron27/tooldock/domain/widget"
)

// WidgetRegistry collects dashboard widget declarations made by modules at
// boot. Widgets live only in memory; the props endpoint serves the widgets
// of currently enabled modules.
type WidgetRegistry struct {
	mu       sync.Mutex
	declared map[string]widget.Widget // by key
}

// NewWidgetRegistry creates an empty widget registry.
func NewWidgetRegistry() *WidgetRegistry {
	return &WidgetRegistry{
		declared: make(map[string]widget.Widget),
	}
}

// Register adds declarations, failing hard on invalid or duplicate keys.
func (r *WidgetRegistry) Register(items ...widget.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if existing, ok := r.declared[item.Key]; ok {
			return fmt.Errorf("widget %q declared by both %q and %q", item.Key, existing.Module, item.Module)
		}
		r.declared[item.Key] = item
	}
	return nil
}

// ForEnabled returns sorted widgets whose owning module passes the filter.
func (r *WidgetRegistry) ForEnabled(enabled func(moduleName string) bool) []widget.Widget {
	r.mu.Lock()
	defer r.mu.Unlock()

	var widgets []widget.Widget
	for _, w := range r.declared {
		if enabled == nil || enabled(w.Module) {
			widgets = append(widgets, w)
		}
	}
	widget.Sort(widgets)
	return widgets
}

// RemoveModule drops the module's widget declarations.
func (r *WidgetRegistry) RemoveModule(moduleName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, w := range r.declared {
		if w.Module == moduleName {
			delete(r.declared, key)
			removed++
		}
	}
	return removed
}

// Reset clears all declarations (for tests).
func (r *WidgetRegistry) Reset() {
	r.mu.Lock()
	r.declared = make(map[string]widget.Widget)
	r.mu.Unlock()
}
