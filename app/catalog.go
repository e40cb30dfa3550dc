// Package app contains the services orchestrating the module lifecycle:
// discovery, dependency validation, install/enable/disable/uninstall, the
// status cache, and the boot-time registries.
package app

import (
	"strings"
	"sync"

	"github.com/fazaimron27/tooldock/domain/module"
)

// Catalog holds the descriptors of all discovered modules. Discovery
// replaces its contents; everything else reads from it.
type Catalog struct {
	mu          sync.RWMutex
	descriptors map[string]module.Descriptor // keyed by lowercased name
	canonical   map[string]string            // lowercased -> canonical name
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		descriptors: make(map[string]module.Descriptor),
		canonical:   make(map[string]string),
	}
}

// Replace swaps in a freshly discovered descriptor set.
func (c *Catalog) Replace(descriptors []module.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.descriptors = make(map[string]module.Descriptor, len(descriptors))
	c.canonical = make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		lower := strings.ToLower(d.Name)
		c.descriptors[lower] = d
		c.canonical[lower] = d.Name
	}
}

// Get looks up a descriptor case-insensitively.
func (c *Catalog) Get(name string) (module.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descriptors[strings.ToLower(name)]
	return d, ok
}

// All returns every descriptor, in no particular order.
func (c *Catalog) All() []module.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]module.Descriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		result = append(result, d)
	}
	return result
}

// CanonicalNames returns the lowercase-to-canonical name map used by
// dependency normalization.
func (c *Catalog) CanonicalNames() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := make(map[string]string, len(c.canonical))
	for k, v := range c.canonical {
		m[k] = v
	}
	return m
}

// Dependents returns the names of modules whose manifests declare name as a
// dependency.
func (c *Catalog) Dependents(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for _, d := range c.descriptors {
		if d.DependsOn(name) {
			result = append(result, d.Name)
		}
	}
	return result
}
