// Package category provides value types for module-declared content
// categories, which form a tree across modules.
package category

import "fmt"

// Category is a tree node declared by a module. Slug is unique across all
// modules; ParentSlug may reference a category owned by another module.
type Category struct {
	Slug       string `json:"slug"`
	Module     string `json:"module"`
	Label      string `json:"label,omitempty"`
	ParentSlug string `json:"parent_slug,omitempty"`
	Position   int    `json:"position"`
}

// Validate checks that a declaration is well-formed.
func (c Category) Validate() error {
	if c.Slug == "" {
		return fmt.Errorf("category missing slug")
	}
	if c.Module == "" {
		return fmt.Errorf("category %q missing owning module", c.Slug)
	}
	if c.ParentSlug == c.Slug {
		return fmt.Errorf("category %q is its own parent", c.Slug)
	}
	return nil
}
