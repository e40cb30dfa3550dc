// Package module provides value types and pure logic for feature modules:
// descriptors read from module manifests, persisted status rows, and the
// rules governing lifecycle state transitions.
package module

import (
	"fmt"
	"strings"
	"time"
)

// Descriptor is the static metadata of a module, read from its manifest.
// Immutable per deployment.
type Descriptor struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Requires  []string `json:"requires"`
	Protected bool     `json:"protected"`

	// Path is the on-disk root of the module, filled in by discovery.
	Path string `json:"-"`
}

// Validate checks that a descriptor is well-formed.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("module descriptor missing name")
	}
	if strings.TrimSpace(d.Version) == "" {
		return fmt.Errorf("module %q descriptor missing version", d.Name)
	}
	for _, req := range d.Requires {
		if strings.EqualFold(strings.TrimSpace(req), d.Name) {
			return fmt.Errorf("module %q declares itself as a dependency", d.Name)
		}
	}
	return nil
}

// Status is the persisted lifecycle state of a module.
type Status struct {
	Name        string
	Installed   bool
	Active      bool
	Version     string
	InstalledAt *time.Time
}

// State describes where a module sits in its lifecycle.
type State int

const (
	// StateUninstalled means the module is known but not installed.
	StateUninstalled State = iota
	// StateInstalled means installed but not active.
	StateInstalled
	// StateActive means installed and active.
	StateActive
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateActive:
		return "active"
	default:
		return "uninstalled"
	}
}

// State derives the lifecycle state from the status flags.
// Active without installed is treated as uninstalled; the service layer
// enforces that a module is never active unless installed.
func (s Status) State() State {
	switch {
	case s.Installed && s.Active:
		return StateActive
	case s.Installed:
		return StateInstalled
	default:
		return StateUninstalled
	}
}
