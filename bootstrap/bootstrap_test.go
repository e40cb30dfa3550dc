package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fazaimron27/tooldock/adapters/sqlite"
	"github.com/fazaimron27/tooldock/config"
)

func testConfig(t *testing.T, modulesDir string) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "test.db"),
		},
		Modules: config.ModulesConfig{
			Dir:                  modulesDir,
			ImportPrefix:         "example.com/app/modules",
			RouteManifest:        filepath.Join(t.TempDir(), "routes.json"),
			AutoInstallProtected: true,
			SeedOnInstall:        true,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func writeManifest(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "module.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func newTestApp(t *testing.T, modulesDir string) *App {
	t.Helper()
	a, err := New(testConfig(t, modulesDir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func TestNewWiresApp(t *testing.T) {
	a := newTestApp(t, t.TempDir())

	if a.DB == nil || a.Lifecycle == nil || a.Discovery == nil || a.Registries == nil {
		t.Fatal("services not wired")
	}
	if a.HTTPServer == nil || a.HTTPServer.Handler == nil {
		t.Fatal("http server not wired")
	}
	if a.MetricsRegistry == nil {
		t.Fatal("metrics registry not wired")
	}
}

func TestNewWithoutMetrics(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Metrics.Enabled = false
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()

	if a.MetricsRegistry != nil {
		t.Fatal("metrics registry should not be exposed when disabled")
	}
}

func TestBootInstallsProtectedAndRegistersDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "Core", `{
		"name": "Core",
		"version": "1.0.0",
		"protected": true,
		"settings": [{"key": "core.site_name", "label": "Site name", "type": "string", "default": "Tooldock"}],
		"menu": [{"key": "core.dashboard", "label": "Dashboard", "route": "/dashboard"}]
	}`)
	writeManifest(t, dir, "Blog", `{"name": "Blog", "version": "1.0.0"}`)

	a := newTestApp(t, dir)
	ctx := context.Background()
	if err := a.Boot(ctx); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if !a.Status.IsInstalled(ctx, "Core") {
		t.Fatal("Core should be installed at boot")
	}
	if !a.Activator.Enabled("Core") {
		t.Fatal("Core should be active at boot")
	}
	if a.Status.IsInstalled(ctx, "Blog") {
		t.Fatal("Blog is not protected and must stay uninstalled")
	}

	// Declarations from the manifest landed in the registries and Core's
	// seeding wrote the setting row.
	row, err := sqlite.NewSettingStore(a.DB).Get(ctx, "core.site_name")
	if err != nil {
		t.Fatalf("setting row: %v", err)
	}
	if row.Value != "Tooldock" {
		t.Fatalf("value = %q", row.Value)
	}

	data, err := os.ReadFile(a.Config.Modules.RouteManifest)
	if err != nil {
		t.Fatalf("route manifest: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("route manifest is empty")
	}
}

func TestBootRejectsDuplicateDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "Alpha", `{
		"name": "Alpha", "version": "1.0.0",
		"settings": [{"key": "shared.key", "label": "A", "type": "string", "default": "a"}]
	}`)
	writeManifest(t, dir, "Beta", `{
		"name": "Beta", "version": "1.0.0",
		"settings": [{"key": "shared.key", "label": "B", "type": "string", "default": "b"}]
	}`)

	a := newTestApp(t, dir)
	if err := a.Boot(context.Background()); err == nil {
		t.Fatal("expected duplicate declaration error")
	}
}

func TestBootIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "Core", `{
		"name": "Core", "version": "1.0.0", "protected": true,
		"settings": [{"key": "core.site_name", "label": "Site name", "type": "string", "default": "Tooldock"}]
	}`)

	a := newTestApp(t, dir)
	ctx := context.Background()
	if err := a.Boot(ctx); err != nil {
		t.Fatalf("first Boot: %v", err)
	}
	// Rediscovery resets in-memory registrations before re-registering, so a
	// second pass must not report duplicates.
	if err := a.Boot(ctx); err != nil {
		t.Fatalf("second Boot: %v", err)
	}
}

func TestShutdownIsIdempotentOnPartialApp(t *testing.T) {
	a := newTestApp(t, t.TempDir())
	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
