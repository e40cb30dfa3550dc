// Package widget provides value types for module-declared dashboard widgets.
// Widgets live only in memory; the props endpoint exposes the widgets of
// currently enabled modules.
package widget

import (
	"fmt"
	"sort"
)

// Widget describes a dashboard widget contributed by a module.
type Widget struct {
	Key       string `json:"key"`
	Module    string `json:"module"`
	Title     string `json:"title"`
	Component string `json:"component"` // frontend component identifier
	Width     int    `json:"width"`     // grid columns, 1-12
	Position  int    `json:"position"`
}

// Validate checks that a declaration is well-formed.
func (w Widget) Validate() error {
	if w.Key == "" {
		return fmt.Errorf("widget missing key")
	}
	if w.Module == "" {
		return fmt.Errorf("widget %q missing owning module", w.Key)
	}
	if w.Component == "" {
		return fmt.Errorf("widget %q missing component", w.Key)
	}
	if w.Width < 0 || w.Width > 12 {
		return fmt.Errorf("widget %q width %d out of range", w.Key, w.Width)
	}
	return nil
}

// Sort orders widgets by position, then key, in place.
func Sort(widgets []Widget) {
	sort.SliceStable(widgets, func(i, j int) bool {
		if widgets[i].Position != widgets[j].Position {
			return widgets[i].Position < widgets[j].Position
		}
		return widgets[i].Key < widgets[j].Key
	})
}
