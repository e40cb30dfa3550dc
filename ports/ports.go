// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/fazaimron27/tooldock/domain/category"
	"github.com/fazaimron27/tooldock/domain/menu"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/domain/role"
	"github.com/fazaimron27/tooldock/domain/setting"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Cache is a small key-value cache with TTLs and tag-based invalidation.
// Backing stores may be in-memory or external.
type Cache interface {
	// Get retrieves a cached value; ok is false on miss or expiry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores a value with a TTL and optional invalidation tags.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// InvalidateTag removes every key stored under the given tag.
	InvalidateTag(ctx context.Context, tag string) error
}

// -----------------------------------------------------------------------------
// Module Ports
// -----------------------------------------------------------------------------

// ErrStatusTableMissing signals that the status table does not exist yet,
// e.g. during early bootstrap before migrations have run. Callers that can
// tolerate this (the activator) treat it as "no modules known".
var ErrStatusTableMissing = errors.New("module status table missing")

// ErrNotFound signals that a requested row does not exist.
var ErrNotFound = errors.New("not found")

// StatusStore persists module lifecycle status rows.
type StatusStore interface {
	// Get retrieves a single module's status. Returns ErrNotFound if the
	// module is unknown, ErrStatusTableMissing if the table is absent.
	Get(ctx context.Context, name string) (module.Status, error)

	// All returns every status row.
	All(ctx context.Context) ([]module.Status, error)

	// Register inserts a row for a newly discovered module if absent.
	Register(ctx context.Context, s module.Status) error

	// MarkInstalled flips the installed flag and stamps installed_at
	// (nil timestamp on uninstall).
	MarkInstalled(ctx context.Context, name string, installed bool, at *time.Time) error

	// SetActive flips the active flag.
	SetActive(ctx context.Context, name string, active bool) error

	// UpdateVersion records a new descriptor version.
	UpdateVersion(ctx context.Context, name, version string) error

	// Delete removes the row entirely (full module removal only).
	Delete(ctx context.Context, name string) error
}

// ManifestLoader reads module descriptors from disk.
type ManifestLoader interface {
	// Load reads a single module's manifest from its root directory.
	Load(dir string) (module.Descriptor, error)

	// LoadAll scans the modules directory for manifests.
	LoadAll(root string) ([]module.Descriptor, error)
}

// SourceScanner extracts cross-module references from a module's source tree.
type SourceScanner interface {
	// Scan walks the module's source files and returns the names of other
	// modules referenced by imports, excluding selfName.
	Scan(ctx context.Context, root, selfName string) ([]string, error)

	// Fingerprint returns a hash over (path, mtime, size) of every source
	// file under root, used as a scan-cache key component.
	Fingerprint(root string) (string, error)
}

// Migrator runs a module's schema migrations and seeders.
type Migrator interface {
	// Migrate applies the module's pending migrations; applied is the
	// number of migration files run.
	Migrate(ctx context.Context, desc module.Descriptor) (applied int, err error)

	// MigratePath applies migrations from an explicit directory. Used as
	// a one-shot fallback when Migrate reports nothing to run.
	MigratePath(ctx context.Context, desc module.Descriptor, dir string) (applied int, err error)

	// Rollback reverts the module's applied migrations in reverse order.
	Rollback(ctx context.Context, desc module.Descriptor) error

	// Seed runs the module's seeders. Failures are fatal to install.
	Seed(ctx context.Context, desc module.Descriptor) error
}

// RouteManifestWriter regenerates the frontend route-name manifest.
type RouteManifestWriter interface {
	Write(ctx context.Context, routes map[string]string) error
}

// Activator is the activation interface the module host expects: a fast
// answer to "is this module enabled" plus flag mutation.
type Activator interface {
	// Enabled reports whether the named module is active. Unknown modules
	// and a missing status table both report false.
	Enabled(name string) bool

	// SetActive flips the active flag and refreshes the activator cache.
	SetActive(ctx context.Context, name string, active bool) error

	// Reset drops the activator's in-memory cache.
	Reset()
}

// -----------------------------------------------------------------------------
// Registry Store Ports
// -----------------------------------------------------------------------------

// SettingStore persists module-declared settings.
type SettingStore interface {
	Get(ctx context.Context, key string) (setting.Setting, error)
	ListByModule(ctx context.Context, moduleName string) ([]setting.Setting, error)
	All(ctx context.Context) ([]setting.Setting, error)

	// Create inserts a new setting row with its declared default value.
	Create(ctx context.Context, s setting.Setting) error

	// UpdateMetadata updates label/type/group/default, preserving the
	// stored value unless the declared type changed.
	UpdateMetadata(ctx context.Context, s setting.Setting) error

	// SetValue updates only the user-facing value.
	SetValue(ctx context.Context, key, value string) error

	// DeleteByModule removes the module's rows, returning how many.
	DeleteByModule(ctx context.Context, moduleName string) (int, error)
}

// PermissionStore persists module-declared permissions.
type PermissionStore interface {
	Get(ctx context.Context, name string) (permission.Permission, error)
	All(ctx context.Context) ([]permission.Permission, error)
	ListByModule(ctx context.Context, moduleName string) ([]permission.Permission, error)
	Create(ctx context.Context, p permission.Permission) error
	UpdateMetadata(ctx context.Context, p permission.Permission) error
	DeleteByModule(ctx context.Context, moduleName string) (int, error)

	// ListChildren returns permissions whose Parent matches name, across
	// all modules. Used for orphan detection during cleanup.
	ListChildren(ctx context.Context, name string) ([]permission.Permission, error)
}

// MenuStore persists module-declared menu items.
type MenuStore interface {
	Get(ctx context.Context, key string) (menu.Item, error)
	All(ctx context.Context) ([]menu.Item, error)
	ListByModule(ctx context.Context, moduleName string) ([]menu.Item, error)
	Create(ctx context.Context, it menu.Item) error
	UpdateMetadata(ctx context.Context, it menu.Item) error
	DeleteByModule(ctx context.Context, moduleName string) (int, error)
	ListChildren(ctx context.Context, parentKey string) ([]menu.Item, error)
}

// CategoryStore persists module-declared categories.
type CategoryStore interface {
	Get(ctx context.Context, slug string) (category.Category, error)
	All(ctx context.Context) ([]category.Category, error)
	ListByModule(ctx context.Context, moduleName string) ([]category.Category, error)
	Create(ctx context.Context, c category.Category) error
	UpdateMetadata(ctx context.Context, c category.Category) error
	DeleteByModule(ctx context.Context, moduleName string) (int, error)
	ListChildren(ctx context.Context, parentSlug string) ([]category.Category, error)
}

// RoleStore persists module-declared roles and their permission grants.
type RoleStore interface {
	Get(ctx context.Context, name string) (role.Role, error)
	All(ctx context.Context) ([]role.Role, error)
	ListByModule(ctx context.Context, moduleName string) ([]role.Role, error)
	Create(ctx context.Context, r role.Role) error
	UpdateMetadata(ctx context.Context, r role.Role) error
	DeleteByModule(ctx context.Context, moduleName string) (int, error)
}

// TxRunner runs a function inside a database transaction. Registry seeding
// and cleanup use it so multi-row sync stays atomic.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
