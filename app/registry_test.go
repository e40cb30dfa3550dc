package app

import (
	"context"
	"strings"
	"testing"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/menu"
	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/domain/setting"
	"github.com/fazaimron27/tooldock/domain/widget"
	"github.com/rs/zerolog"
)

func newSettingsFixture(t *testing.T) (*SettingsRegistry, *memSettingStore) {
	t.Helper()
	store := newMemSettingStore()
	collector, _ := metrics.New()
	return NewSettingsRegistry(store, passTx{}, collector, zerolog.Nop()), store
}

func TestSettingsRegisterDuplicateKey(t *testing.T) {
	reg, _ := newSettingsFixture(t)
	if err := reg.Register(setting.Setting{Key: "site.name", Module: "Core", Default: "x"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := reg.Register(setting.Setting{Key: "site.name", Module: "Blog", Default: "y"})
	if err == nil {
		t.Fatal("duplicate key accepted")
	}
	for _, want := range []string{"site.name", "Core", "Blog"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q lacks %q", err, want)
		}
	}
}

func TestSettingsSeedPreservesUserValue(t *testing.T) {
	reg, store := newSettingsFixture(t)
	if err := reg.Register(setting.Setting{
		Key: "site.name", Module: "Core", Default: "Tooldock", Label: "Site name",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Seed(context.Background(), true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.SetValue(context.Background(), "site.name", "My Site"); err != nil {
		t.Fatalf("set value: %v", err)
	}

	// Re-seeding with changed metadata must not clobber the user value.
	reg.Reset()
	if err := reg.Register(setting.Setting{
		Key: "site.name", Module: "Core", Default: "Tooldock", Label: "Display name",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Seed(context.Background(), true); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	stored, err := store.Get(context.Background(), "site.name")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Value != "My Site" {
		t.Fatalf("value = %q, want user value preserved", stored.Value)
	}
	if stored.Label != "Display name" {
		t.Fatalf("label = %q, metadata not refreshed", stored.Label)
	}
}

func TestSettingsSeedIdempotent(t *testing.T) {
	reg, store := newSettingsFixture(t)
	if err := reg.Register(setting.Setting{Key: "a", Module: "Core", Default: "1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := reg.Seed(context.Background(), true); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows = %d", len(all))
	}
}

func newPermissionsFixture(t *testing.T) (*PermissionsRegistry, *memPermissionStore) {
	t.Helper()
	store := newMemPermissionStore()
	collector, _ := metrics.New()
	return NewPermissionsRegistry(store, passTx{}, collector, zerolog.Nop()), store
}

func TestPermissionsForwardParentReference(t *testing.T) {
	reg, store := newPermissionsFixture(t)
	// Child registered before its parent.
	if err := reg.Register(
		permission.Permission{Name: "posts.edit", Module: "Blog", Parent: "posts"},
		permission.Permission{Name: "posts", Module: "Blog"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Seed(context.Background(), true); err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("rows = %d", len(all))
	}
}

func TestPermissionsCycleStillSeeds(t *testing.T) {
	reg, store := newPermissionsFixture(t)
	if err := reg.Register(
		permission.Permission{Name: "a", Module: "Blog", Parent: "b"},
		permission.Permission{Name: "b", Module: "Blog", Parent: "a"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}

	// A parent cycle cannot resolve, but every row must still land.
	if err := reg.Seed(context.Background(), false); err != nil {
		t.Fatalf("seed: %v", err)
	}
	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("rows = %d", len(all))
	}
}

func TestPermissionsCleanupRemovesOnlyOwned(t *testing.T) {
	reg, store := newPermissionsFixture(t)
	if err := reg.Register(
		permission.Permission{Name: "posts", Module: "Blog"},
		permission.Permission{Name: "orders", Module: "Shop"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Seed(context.Background(), true); err != nil {
		t.Fatalf("seed: %v", err)
	}

	removed, err := reg.Cleanup(context.Background(), "Blog")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if _, err := store.Get(context.Background(), "orders"); err != nil {
		t.Fatal("other module's permission removed")
	}
}

func newMenuFixture(t *testing.T) (*MenuRegistry, *memMenuStore) {
	t.Helper()
	store := newMemMenuStore()
	collector, _ := metrics.New()
	return NewMenuRegistry(store, passTx{}, collector, zerolog.Nop()), store
}

func TestMenuRegisterDuplicateRoute(t *testing.T) {
	reg, _ := newMenuFixture(t)
	if err := reg.Register(menu.Item{Key: "blog.index", Module: "Blog", Label: "Blog", Route: "/posts"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := reg.Register(menu.Item{Key: "news.index", Module: "News", Label: "News", Route: "/posts"})
	if err == nil {
		t.Fatal("duplicate route accepted")
	}
	if !strings.Contains(err.Error(), "/posts") {
		t.Fatalf("error lacks route: %v", err)
	}
}

func TestMenuTreeFiltersDisabledModules(t *testing.T) {
	reg, _ := newMenuFixture(t)
	if err := reg.Register(
		menu.Item{Key: "blog", Module: "Blog", Label: "Blog", Route: "/blog"},
		menu.Item{Key: "shop", Module: "Shop", Label: "Shop", Route: "/shop"},
	); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Seed(context.Background(), true); err != nil {
		t.Fatalf("seed: %v", err)
	}

	enabled := func(moduleName string) bool { return moduleName == "Blog" }
	roots, err := reg.Tree(context.Background(), enabled)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(roots) != 1 || roots[0].Key != "blog" {
		t.Fatalf("roots = %v", roots)
	}

	routes, err := reg.RouteNames(context.Background(), enabled)
	if err != nil {
		t.Fatalf("route names: %v", err)
	}
	if len(routes) != 1 || routes["blog"] != "/blog" {
		t.Fatalf("routes = %v", routes)
	}
}

func TestMiddlewareRegistryDuplicate(t *testing.T) {
	reg := NewMiddlewareRegistry()
	if err := reg.Register("Blog", "auth.check"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("Shop", "auth.check"); err == nil {
		t.Fatal("duplicate middleware accepted")
	}

	if n := reg.RemoveModule("Blog"); n != 1 {
		t.Fatalf("removed = %d", n)
	}
	if err := reg.Register("Shop", "auth.check"); err != nil {
		t.Fatalf("register after removal: %v", err)
	}
}

func TestWidgetRegistryFiltersAndSorts(t *testing.T) {
	reg := NewWidgetRegistry()
	if err := reg.Register(
		widget.Widget{Key: "shop.sales", Module: "Shop", Title: "Sales", Component: "Sales", Width: 6, Position: 2},
		widget.Widget{Key: "blog.posts", Module: "Blog", Title: "Posts", Component: "Posts", Width: 6, Position: 1},
	); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := reg.Register(widget.Widget{Key: "blog.posts", Module: "News", Title: "x", Component: "x", Width: 3}); err == nil {
		t.Fatal("duplicate widget key accepted")
	}

	widgets := reg.ForEnabled(func(moduleName string) bool { return true })
	if len(widgets) != 2 || widgets[0].Key != "blog.posts" {
		t.Fatalf("widgets = %v", widgets)
	}

	widgets = reg.ForEnabled(func(moduleName string) bool { return moduleName == "Shop" })
	if len(widgets) != 1 || widgets[0].Key != "shop.sales" {
		t.Fatalf("widgets = %v", widgets)
	}
}
