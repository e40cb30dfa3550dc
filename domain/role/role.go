// Package role provides value types for module-declared roles and their
// permission grants.
package role

import "fmt"

// Role is a named bundle of permissions declared by a module.
type Role struct {
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Label       string   `json:"label,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Validate checks that a declaration is well-formed.
func (r Role) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("role missing name")
	}
	if r.Module == "" {
		return fmt.Errorf("role %q missing owning module", r.Name)
	}
	return nil
}
