// Package manifest reads module descriptors from disk and regenerates the
// frontend route-name manifest.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
)

// FileName is the per-module manifest file.
const FileName = "module.json"

// Loader reads module.json descriptors.
type Loader struct{}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a single module's manifest from its root directory.
func (l *Loader) Load(dir string) (module.Descriptor, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return module.Descriptor{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var desc module.Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return module.Descriptor{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	desc.Path = dir

	if err := desc.Validate(); err != nil {
		return module.Descriptor{}, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return desc, nil
}

// LoadAll scans the modules directory for manifests, one per subdirectory.
// Directories without a manifest are skipped; a malformed manifest fails the
// whole scan so broken modules surface immediately.
func (l *Loader) LoadAll(root string) ([]module.Descriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read modules dir %s: %w", root, err)
	}

	var descriptors []module.Descriptor
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, FileName)); os.IsNotExist(err) {
			continue
		}
		desc, err := l.Load(dir)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors, nil
}

// Ensure interface compliance.
var _ ports.ManifestLoader = (*Loader)(nil)
