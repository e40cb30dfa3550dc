// Package permission provides value types for module-declared permissions
// and their grouping for the frontend.
package permission

import (
	"fmt"
	"sort"
	"strings"
)

// Permission is a single permission declared by a module. Name is unique
// across all modules. Parent references another permission's Name to build
// grouped hierarchies (e.g. "media" owning "media.upload").
type Permission struct {
	Name   string `json:"name"`
	Module string `json:"module"`
	Label  string `json:"label,omitempty"`
	Group  string `json:"group,omitempty"`
	Parent string `json:"parent,omitempty"`
}

// Validate checks that a declaration is well-formed.
func (p Permission) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("permission missing name")
	}
	if p.Module == "" {
		return fmt.Errorf("permission %q missing owning module", p.Name)
	}
	if p.Parent == p.Name {
		return fmt.Errorf("permission %q is its own parent", p.Name)
	}
	return nil
}

// Grouping is the frontend-facing view: permissions bucketed by group name.
type Grouping struct {
	Group       string       `json:"group"`
	Permissions []Permission `json:"permissions"`
}

// GroupAll buckets permissions by group, sorted by group then name.
// Permissions without a group fall under their module name.
func GroupAll(perms []Permission) []Grouping {
	buckets := make(map[string][]Permission)
	for _, p := range perms {
		group := p.Group
		if group == "" {
			group = strings.ToLower(p.Module)
		}
		buckets[group] = append(buckets[group], p)
	}

	groups := make([]string, 0, len(buckets))
	for g := range buckets {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	result := make([]Grouping, 0, len(groups))
	for _, g := range groups {
		ps := buckets[g]
		sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
		result = append(result, Grouping{Group: g, Permissions: ps})
	}
	return result
}
