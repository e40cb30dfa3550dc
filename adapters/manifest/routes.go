package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fazaimron27/tooldock/ports"
)

// RouteWriter regenerates the route-name manifest the frontend imports to
// resolve named routes. The file is written atomically so in-flight page
// loads never read a partial manifest.
type RouteWriter struct {
	path string
}

// NewRouteWriter creates a writer targeting the given manifest path.
func NewRouteWriter(path string) *RouteWriter {
	return &RouteWriter{path: path}
}

// Write serializes the route-name map and swaps it into place.
func (w *RouteWriter) Write(ctx context.Context, routes map[string]string) error {
	if routes == nil {
		routes = map[string]string{}
	}

	data, err := json.MarshalIndent(routes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode route manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write route manifest: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("swap route manifest: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.RouteManifestWriter = (*RouteWriter)(nil)
