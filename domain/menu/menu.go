// Package menu provides value types for module-declared navigation menus and
// the logic for assembling flat declarations into an ordered tree.
package menu

import (
	"fmt"
	"sort"
)

// MaxDepth bounds the passes used to resolve parent references, guarding
// against cycles and runaway nesting in module declarations.
const MaxDepth = 8

// Item is a single menu entry declared by a module. Key is unique across all
// modules; ParentKey references another item's Key, possibly declared by a
// different module and possibly later in the declaration order.
type Item struct {
	Key       string `json:"key"`
	Module    string `json:"module"`
	Label     string `json:"label"`
	Route     string `json:"route,omitempty"`
	Icon      string `json:"icon,omitempty"`
	ParentKey string `json:"parent_key,omitempty"`
	Position  int    `json:"position"`
}

// Node is a resolved menu item with its children attached.
type Node struct {
	Item
	Children []*Node `json:"children,omitempty"`
}

// BuildTree assembles flat items into a tree. Forward references resolve
// because attachment runs in bounded passes; items whose parent never
// resolves within MaxDepth passes are returned in orphans.
func BuildTree(items []Item) (roots []*Node, orphans []Item) {
	nodes := make(map[string]*Node, len(items))
	for _, it := range items {
		nodes[it.Key] = &Node{Item: it}
	}

	attached := make(map[string]bool, len(items))
	for pass := 0; pass < MaxDepth; pass++ {
		progress := false
		for _, it := range items {
			if attached[it.Key] {
				continue
			}
			if it.ParentKey == "" {
				roots = append(roots, nodes[it.Key])
				attached[it.Key] = true
				progress = true
				continue
			}
			parent, ok := nodes[it.ParentKey]
			if !ok {
				continue
			}
			// Attach only once the parent itself is placed, so depth
			// stays bounded by the pass count.
			if !attached[it.ParentKey] {
				continue
			}
			parent.Children = append(parent.Children, nodes[it.Key])
			attached[it.Key] = true
			progress = true
		}
		if !progress {
			break
		}
	}

	for _, it := range items {
		if !attached[it.Key] {
			orphans = append(orphans, it)
		}
	}

	sortNodes(roots)
	return roots, orphans
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Position != nodes[j].Position {
			return nodes[i].Position < nodes[j].Position
		}
		return nodes[i].Key < nodes[j].Key
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Validate checks that an item declaration is well-formed.
func (i Item) Validate() error {
	if i.Key == "" {
		return fmt.Errorf("menu item missing key")
	}
	if i.Module == "" {
		return fmt.Errorf("menu item %q missing owning module", i.Key)
	}
	if i.Label == "" {
		return fmt.Errorf("menu item %q missing label", i.Key)
	}
	if i.ParentKey == i.Key {
		return fmt.Errorf("menu item %q is its own parent", i.Key)
	}
	return nil
}
