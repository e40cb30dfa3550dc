package app

import (
	"context"
	"testing"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/rs/zerolog"
)

func newTestDiscovery(t *testing.T, env *testEnv, descriptors ...module.Descriptor) (*Discovery, *fakeLoader) {
	t.Helper()
	loader := &fakeLoader{descriptors: descriptors}
	collector, _ := metrics.New()
	return NewDiscovery("/modules", loader, env.catalog, env.status, env.lifecycle, true, collector, zerolog.Nop()), loader
}

func TestRefreshRegistersNewModules(t *testing.T) {
	env := newTestEnv(t)
	disc, _ := newTestDiscovery(t, env, desc("Blog"), desc("Shop"))

	found, err := disc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d modules", len(found))
	}

	st, err := env.status.Get(context.Background(), "Blog")
	if err != nil {
		t.Fatalf("status row missing: %v", err)
	}
	if st.Installed || st.Active {
		t.Fatalf("new module should start uninstalled: %+v", st)
	}
	if st.Version != "1.0.0" {
		t.Fatalf("version = %q", st.Version)
	}
}

func TestRefreshUpdatesVersionOfUninstalledModules(t *testing.T) {
	env := newTestEnv(t)
	disc, loader := newTestDiscovery(t, env, desc("Blog"))
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	bumped := desc("Blog")
	bumped.Version = "2.0.0"
	loader.descriptors = []module.Descriptor{bumped}
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	st, _ := env.status.Get(context.Background(), "Blog")
	if st.Version != "2.0.0" {
		t.Fatalf("version = %q, want 2.0.0", st.Version)
	}
}

func TestRefreshKeepsInstalledVersion(t *testing.T) {
	env := newTestEnv(t, desc("Blog"))
	disc, loader := newTestDiscovery(t, env, desc("Blog"))
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	env.mustInstall(t, "Blog")

	bumped := desc("Blog")
	bumped.Version = "2.0.0"
	loader.descriptors = []module.Descriptor{bumped}
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Installed modules keep the version they were installed at.
	st, _ := env.status.Get(context.Background(), "Blog")
	if st.Version != "1.0.0" {
		t.Fatalf("version = %q, want 1.0.0", st.Version)
	}
}

func TestOrphansReportsMissingOnDisk(t *testing.T) {
	env := newTestEnv(t)
	disc, loader := newTestDiscovery(t, env, desc("Blog"), desc("Shop"))
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	loader.descriptors = []module.Descriptor{desc("Blog")}
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	orphans, err := disc.Orphans(context.Background())
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].Name != "Shop" {
		t.Fatalf("orphans = %v", orphans)
	}
}

func TestInstallProtectedRespectsDependencyOrder(t *testing.T) {
	core := desc("Core")
	core.Protected = true
	acl := desc("Acl", "Core")
	acl.Protected = true

	env := newTestEnv(t, core, acl)
	disc, _ := newTestDiscovery(t, env, core, acl)
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := disc.InstallProtected(context.Background()); err != nil {
		t.Fatalf("install protected: %v", err)
	}

	if !env.status.IsEnabled(context.Background(), "Core") {
		t.Fatal("Core not enabled")
	}
	if !env.status.IsEnabled(context.Background(), "Acl") {
		t.Fatal("Acl not enabled")
	}
	if len(env.migrator.migrated) != 2 || env.migrator.migrated[0] != "Core" {
		t.Fatalf("install order = %v", env.migrator.migrated)
	}
}

func TestInstallProtectedSkipsNonProtected(t *testing.T) {
	core := desc("Core")
	core.Protected = true

	env := newTestEnv(t, core, desc("Blog"))
	disc, _ := newTestDiscovery(t, env, core, desc("Blog"))
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := disc.InstallProtected(context.Background()); err != nil {
		t.Fatalf("install protected: %v", err)
	}
	if env.status.IsInstalled(context.Background(), "Blog") {
		t.Fatal("non-protected module installed")
	}
}

func TestInstallProtectedSurvivesCycle(t *testing.T) {
	a := desc("Alpha", "Beta")
	a.Protected = true
	b := desc("Beta", "Alpha")
	b.Protected = true

	env := newTestEnv(t, a, b)
	disc, _ := newTestDiscovery(t, env, a, b)
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A dependency cycle between protected modules must not hang or
	// error; the modules are left uninstalled with warnings.
	if err := disc.InstallProtected(context.Background()); err != nil {
		t.Fatalf("install protected: %v", err)
	}
	if env.status.IsInstalled(context.Background(), "Alpha") || env.status.IsInstalled(context.Background(), "Beta") {
		t.Fatal("cycle member installed")
	}
}

func TestInstallProtectedHonorsSeedSetting(t *testing.T) {
	core := desc("Core")
	core.Protected = true

	env := newTestEnv(t, core)
	loader := &fakeLoader{descriptors: []module.Descriptor{core}}
	collector, _ := metrics.New()
	disc := NewDiscovery("/modules", loader, env.catalog, env.status, env.lifecycle, false, collector, zerolog.Nop())
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := disc.InstallProtected(context.Background()); err != nil {
		t.Fatalf("install protected: %v", err)
	}
	if !env.status.IsEnabled(context.Background(), "Core") {
		t.Fatal("Core not enabled")
	}
	if len(env.migrator.seeded) != 0 {
		t.Fatalf("seeders ran with seeding disabled: %v", env.migrator.seeded)
	}
}

func TestInstallProtectedFailureDoesNotBlockOthers(t *testing.T) {
	core := desc("Core")
	core.Protected = true
	broken := desc("Broken")
	broken.Protected = true

	env := newTestEnv(t, core, broken)
	env.migrator.seedErr["Broken"] = context.DeadlineExceeded
	disc, _ := newTestDiscovery(t, env, core, broken)
	if _, err := disc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := disc.InstallProtected(context.Background()); err != nil {
		t.Fatalf("install protected: %v", err)
	}
	if !env.status.IsInstalled(context.Background(), "Core") {
		t.Fatal("Core blocked by unrelated failure")
	}
	if env.status.IsInstalled(context.Background(), "Broken") {
		t.Fatal("Broken installed despite seed failure")
	}
}
