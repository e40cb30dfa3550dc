package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// maxHierarchyPasses bounds parent-reference resolution during seeding so
// forward references resolve but cycles cannot loop forever.
const maxHierarchyPasses = 8

// PermissionsRegistry collects permission declarations made by modules at
// boot and syncs them to storage. Duplicate permission names across modules
// are a hard error. Parent/child hierarchies are seeded in bounded passes so
// a child may be declared before its parent.
type PermissionsRegistry struct {
	store   ports.PermissionStore
	tx      ports.TxRunner
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu       sync.Mutex
	declared map[string]permission.Permission // by name
}

// NewPermissionsRegistry creates an empty permissions registry.
func NewPermissionsRegistry(store ports.PermissionStore, tx ports.TxRunner, collector *metrics.Collector, logger zerolog.Logger) *PermissionsRegistry {
	return &PermissionsRegistry{
		store:    store,
		tx:       tx,
		metrics:  collector,
		logger:   logger,
		declared: make(map[string]permission.Permission),
	}
}

// Register adds declarations, failing hard on invalid or duplicate names.
func (r *PermissionsRegistry) Register(items ...permission.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if existing, ok := r.declared[item.Name]; ok {
			return fmt.Errorf("permission %q declared by both %q and %q", item.Name, existing.Module, item.Module)
		}
		r.declared[item.Name] = item
	}
	return nil
}

// Seed syncs every declaration to storage inside a single transaction,
// resolving parent references in bounded passes: an item whose parent is
// declared but not yet persisted waits for a later pass.
func (r *PermissionsRegistry) Seed(ctx context.Context, strict bool) error {
	return r.seed(ctx, "", strict)
}

// SeedModule syncs only the named module's declarations.
func (r *PermissionsRegistry) SeedModule(ctx context.Context, moduleName string, strict bool) error {
	return r.seed(ctx, moduleName, strict)
}

func (r *PermissionsRegistry) seed(ctx context.Context, moduleName string, strict bool) error {
	items := r.snapshot(moduleName)

	inBatch := make(map[string]bool, len(items))
	for _, item := range items {
		inBatch[item.Name] = true
	}

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		persisted := make(map[string]bool, len(items))

		for pass := 0; pass < maxHierarchyPasses && len(persisted) < len(items); pass++ {
			progress := false
			for _, item := range items {
				if persisted[item.Name] {
					continue
				}
				// Wait for a parent in this batch to land first;
				// parents outside the batch are already in storage
				// or belong to another module and are not gated on.
				if item.Parent != "" && inBatch[item.Parent] && !persisted[item.Parent] {
					continue
				}

				if err := r.seedOne(ctx, item); err != nil {
					if strict {
						return fmt.Errorf("seed permission %q: %w", item.Name, err)
					}
					r.logger.Error().Err(err).Str("name", item.Name).Str("module", item.Module).Msg("permission seed failed")
					if r.metrics != nil {
						r.metrics.RegistryFailures.WithLabelValues("permissions").Inc()
					}
				}
				persisted[item.Name] = true
				progress = true
			}
			if !progress {
				break
			}
		}

		if len(persisted) < len(items) {
			r.logger.Warn().
				Int("unresolved", len(items)-len(persisted)).
				Msg("permission hierarchy unresolved after bounded passes")
			for _, item := range items {
				if !persisted[item.Name] {
					if err := r.seedOne(ctx, item); err != nil && strict {
						return fmt.Errorf("seed permission %q: %w", item.Name, err)
					}
				}
			}
		}
		return nil
	})
}

func (r *PermissionsRegistry) seedOne(ctx context.Context, item permission.Permission) error {
	stored, err := r.store.Get(ctx, item.Name)
	if errors.Is(err, ports.ErrNotFound) {
		if err := r.store.Create(ctx, item); err != nil {
			return err
		}
		r.seeded()
		return nil
	}
	if err != nil {
		return err
	}

	if stored.Label != item.Label || stored.Group != item.Group || stored.Parent != item.Parent {
		if err := r.store.UpdateMetadata(ctx, item); err != nil {
			return err
		}
		r.seeded()
	}
	return nil
}

func (r *PermissionsRegistry) seeded() {
	if r.metrics != nil {
		r.metrics.RegistrySeeded.WithLabelValues("permissions").Inc()
	}
}

// Cleanup removes the module's rows plus its in-memory declarations, and
// logs children owned by other modules whose parent was just deleted.
func (r *PermissionsRegistry) Cleanup(ctx context.Context, moduleName string) (int, error) {
	var removed int
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		owned, err := r.store.ListByModule(ctx, moduleName)
		if err != nil {
			return err
		}

		n, err := r.store.DeleteByModule(ctx, moduleName)
		if err != nil {
			return err
		}
		removed = n

		// Detect orphans: children owned by other modules whose parent
		// this module just removed.
		for _, p := range owned {
			children, err := r.store.ListChildren(ctx, p.Name)
			if err != nil {
				return err
			}
			for _, child := range children {
				if child.Module != moduleName {
					r.logger.Warn().
						Str("permission", child.Name).
						Str("module", child.Module).
						Str("deleted_parent", p.Name).
						Msg("orphaned permission after cleanup")
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	for name, item := range r.declared {
		if item.Module == moduleName {
			delete(r.declared, name)
		}
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistryCleaned.WithLabelValues("permissions").Add(float64(removed))
	}
	return removed, nil
}

// Reset clears all declarations (for tests).
func (r *PermissionsRegistry) Reset() {
	r.mu.Lock()
	r.declared = make(map[string]permission.Permission)
	r.mu.Unlock()
}

// All returns every persisted permission.
func (r *PermissionsRegistry) All(ctx context.Context) ([]permission.Permission, error) {
	return r.store.All(ctx)
}

func (r *PermissionsRegistry) snapshot(moduleName string) []permission.Permission {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []permission.Permission
	for _, item := range r.declared {
		if moduleName == "" || item.Module == moduleName {
			items = append(items, item)
		}
	}
	return items
}
