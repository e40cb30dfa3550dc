package app

import (
	"context"
	"fmt"
)

// RegistrySet bundles the persistent registries so the lifecycle service can
// seed and clean them as one unit.
type RegistrySet struct {
	Settings    *SettingsRegistry
	Permissions *PermissionsRegistry
	Menus       *MenuRegistry
	Categories  *CategoriesRegistry
	Roles       *RolesRegistry
	Middleware  *MiddlewareRegistry
	Widgets     *WidgetRegistry
}

// SeedModule seeds the named module's declarations across every registry.
func (rs *RegistrySet) SeedModule(ctx context.Context, moduleName string, strict bool) error {
	if err := rs.Settings.SeedModule(ctx, moduleName, strict); err != nil {
		return fmt.Errorf("settings registry: %w", err)
	}
	if err := rs.Permissions.SeedModule(ctx, moduleName, strict); err != nil {
		return fmt.Errorf("permissions registry: %w", err)
	}
	if err := rs.Menus.SeedModule(ctx, moduleName, strict); err != nil {
		return fmt.Errorf("menu registry: %w", err)
	}
	if err := rs.Categories.SeedModule(ctx, moduleName, strict); err != nil {
		return fmt.Errorf("categories registry: %w", err)
	}
	if err := rs.Roles.SeedModule(ctx, moduleName, strict); err != nil {
		return fmt.Errorf("roles registry: %w", err)
	}
	return nil
}

// SeedAll seeds every registered declaration.
func (rs *RegistrySet) SeedAll(ctx context.Context, strict bool) error {
	if err := rs.Settings.Seed(ctx, strict); err != nil {
		return fmt.Errorf("settings registry: %w", err)
	}
	if err := rs.Permissions.Seed(ctx, strict); err != nil {
		return fmt.Errorf("permissions registry: %w", err)
	}
	if err := rs.Menus.Seed(ctx, strict); err != nil {
		return fmt.Errorf("menu registry: %w", err)
	}
	if err := rs.Categories.Seed(ctx, strict); err != nil {
		return fmt.Errorf("categories registry: %w", err)
	}
	if err := rs.Roles.Seed(ctx, strict); err != nil {
		return fmt.Errorf("roles registry: %w", err)
	}
	return nil
}

// Cleanup removes every registry row owned by the module, in memory and in
// storage.
func (rs *RegistrySet) Cleanup(ctx context.Context, moduleName string) error {
	if _, err := rs.Settings.Cleanup(ctx, moduleName); err != nil {
		return fmt.Errorf("settings cleanup: %w", err)
	}
	if _, err := rs.Permissions.Cleanup(ctx, moduleName); err != nil {
		return fmt.Errorf("permissions cleanup: %w", err)
	}
	if _, err := rs.Menus.Cleanup(ctx, moduleName); err != nil {
		return fmt.Errorf("menu cleanup: %w", err)
	}
	if _, err := rs.Categories.Cleanup(ctx, moduleName); err != nil {
		return fmt.Errorf("categories cleanup: %w", err)
	}
	if _, err := rs.Roles.Cleanup(ctx, moduleName); err != nil {
		return fmt.Errorf("roles cleanup: %w", err)
	}
	rs.Middleware.RemoveModule(moduleName)
	rs.Widgets.RemoveModule(moduleName)
	return nil
}
