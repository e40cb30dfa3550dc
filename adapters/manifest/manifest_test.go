package manifest_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fazaimron27/tooldock/adapters/manifest"
)

func writeManifest(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "Blog", `{"name": "Blog", "version": "1.2.0", "requires": ["Media"], "protected": false}`)

	loader := manifest.NewLoader()
	desc, err := loader.Load(filepath.Join(root, "Blog"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if desc.Name != "Blog" || desc.Version != "1.2.0" || desc.Protected {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	if len(desc.Requires) != 1 || desc.Requires[0] != "Media" {
		t.Errorf("requires = %v, want [Media]", desc.Requires)
	}
	if desc.Path != filepath.Join(root, "Blog") {
		t.Errorf("path not recorded: %q", desc.Path)
	}
}

func TestLoader_LoadAll(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "Core", `{"name": "Core", "version": "1.0.0", "protected": true}`)
	writeManifest(t, root, "Blog", `{"name": "Blog", "version": "1.0.0"}`)
	// Directory without a manifest is skipped.
	os.MkdirAll(filepath.Join(root, "scratch"), 0o755)

	loader := manifest.NewLoader()
	descriptors, err := loader.LoadAll(root)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("got %d descriptors, want 2", len(descriptors))
	}
	// Sorted by name.
	if descriptors[0].Name != "Blog" || descriptors[1].Name != "Core" {
		t.Errorf("unexpected order: %s, %s", descriptors[0].Name, descriptors[1].Name)
	}
	if !descriptors[1].Protected {
		t.Error("Core should be protected")
	}
}

func TestLoader_MalformedManifestFailsScan(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "Bad", `{"name": `)

	loader := manifest.NewLoader()
	if _, err := loader.LoadAll(root); err == nil {
		t.Error("malformed manifest should fail the scan")
	}
}

func TestLoader_MissingRoot(t *testing.T) {
	loader := manifest.NewLoader()
	descriptors, err := loader.LoadAll(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing root should not fail: %v", err)
	}
	if len(descriptors) != 0 {
		t.Errorf("expected no descriptors, got %v", descriptors)
	}
}

func TestRouteWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "routes.json")
	w := manifest.NewRouteWriter(path)

	routes := map[string]string{
		"blog.index": "/blog",
		"blog.show":  "/blog/{id}",
	}
	if err := w.Write(context.Background(), routes); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["blog.index"] != "/blog" {
		t.Errorf("unexpected manifest contents: %v", got)
	}

	// Rewriting with nil produces an empty object, not an error.
	if err := w.Write(context.Background(), nil); err != nil {
		t.Fatalf("write nil: %v", err)
	}
}
