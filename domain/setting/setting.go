// Package setting provides value types for module-declared settings.
// A setting's value is user-editable after seeding; label, type and group
// are metadata owned by the declaring module.
package setting

import (
	"fmt"
	"time"
)

// Setting is a key-value entry declared by a module. Key is unique across
// all modules.
type Setting struct {
	Key       string    `json:"key"`
	Module    string    `json:"module"`
	Value     string    `json:"value,omitempty"`
	Default   string    `json:"default,omitempty"`
	Label     string    `json:"label,omitempty"`
	Type      string    `json:"type,omitempty"` // "string", "int", "bool", "json"
	Group     string    `json:"group,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Validate checks that a declaration is well-formed.
func (s Setting) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("setting missing key")
	}
	if s.Module == "" {
		return fmt.Errorf("setting %q missing owning module", s.Key)
	}
	switch s.Type {
	case "", "string", "int", "bool", "json":
	default:
		return fmt.Errorf("setting %q has unknown type %q", s.Key, s.Type)
	}
	return nil
}

// MetadataChanged reports whether the declared metadata differs from the
// stored row. Value is deliberately excluded: user edits survive reseeding.
func (s Setting) MetadataChanged(stored Setting) bool {
	return s.Label != stored.Label || s.Type != stored.Type || s.Group != stored.Group || s.Default != stored.Default
}
