package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
)

// ModuleMigrator applies and rolls back per-module schema migrations, and
// runs module seeders. Migrations live in the module's migrations/ directory
// as paired NNN_name.up.sql / NNN_name.down.sql files; seeders are plain SQL
// files under seeds/. Applied versions are recorded in module_migrations.
type ModuleMigrator struct {
	db *DB
}

// NewModuleMigrator creates a migrator backed by the core database.
func NewModuleMigrator(db *DB) *ModuleMigrator {
	return &ModuleMigrator{db: db}
}

// Migrate applies the module's pending migrations from its default
// migrations directory.
func (m *ModuleMigrator) Migrate(ctx context.Context, desc module.Descriptor) (int, error) {
	return m.MigratePath(ctx, desc, filepath.Join(desc.Path, "migrations"))
}

// MigratePath applies pending migrations from an explicit directory.
func (m *ModuleMigrator) MigratePath(ctx context.Context, desc module.Descriptor, dir string) (int, error) {
	versions, err := listMigrations(dir, ".up.sql")
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, nil
	}

	applied, err := m.appliedVersions(ctx, desc.Name)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, version := range versions {
		if applied[version] {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, version+".up.sql"))
		if err != nil {
			return count, fmt.Errorf("read migration %s: %w", version, err)
		}

		err = m.db.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := m.db.conn(ctx).ExecContext(ctx, string(content)); err != nil {
				return fmt.Errorf("apply migration %s for module %q: %w", version, desc.Name, err)
			}
			_, err := m.db.conn(ctx).ExecContext(ctx,
				`INSERT INTO module_migrations (module, version) VALUES (?, ?)`,
				desc.Name, version,
			)
			return err
		})
		if err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// Rollback reverts the module's applied migrations in reverse order. Missing
// down files are skipped; the applied record is removed either way so a
// reinstall starts clean.
func (m *ModuleMigrator) Rollback(ctx context.Context, desc module.Descriptor) error {
	applied, err := m.appliedVersions(ctx, desc.Name)
	if err != nil {
		return err
	}

	versions := make([]string, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))

	dir := filepath.Join(desc.Path, "migrations")
	for _, version := range versions {
		downPath := filepath.Join(dir, version+".down.sql")
		content, err := os.ReadFile(downPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read rollback %s: %w", version, err)
		}

		err = m.db.WithinTx(ctx, func(ctx context.Context) error {
			if len(content) > 0 {
				if _, err := m.db.conn(ctx).ExecContext(ctx, string(content)); err != nil {
					return fmt.Errorf("rollback migration %s for module %q: %w", version, desc.Name, err)
				}
			}
			_, err := m.db.conn(ctx).ExecContext(ctx,
				`DELETE FROM module_migrations WHERE module = ? AND version = ?`,
				desc.Name, version,
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Seed runs the module's seed files in name order.
func (m *ModuleMigrator) Seed(ctx context.Context, desc module.Descriptor) error {
	dir := filepath.Join(desc.Path, "seeds")
	names, err := listMigrations(dir, ".sql")
	if err != nil {
		return err
	}

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name+".sql"))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", name, err)
		}
		if _, err := m.db.conn(ctx).ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("run seed %s for module %q: %w", name, desc.Name, err)
		}
	}
	return nil
}

// appliedVersions returns the set of migration versions recorded for a module.
func (m *ModuleMigrator) appliedVersions(ctx context.Context, moduleName string) (map[string]bool, error) {
	rows, err := m.db.conn(ctx).QueryContext(ctx,
		`SELECT version FROM module_migrations WHERE module = ?`, moduleName,
	)
	if err != nil {
		return nil, fmt.Errorf("query module migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// listMigrations returns sorted base names (suffix stripped) of files ending
// with suffix under dir. A missing directory yields an empty list.
func listMigrations(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), suffix))
	}
	sort.Strings(names)
	return names, nil
}

// Ensure interface compliance.
var _ ports.Migrator = (*ModuleMigrator)(nil)
