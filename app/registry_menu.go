package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/menu"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// MenuRegistry collects menu declarations made by modules at boot and syncs
// them to storage. Duplicate keys or routes across modules are a hard error.
// Parent references are seeded in bounded passes so children may be declared
// before their parents.
type MenuRegistry struct {
	store   ports.MenuStore
	tx      ports.TxRunner
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu       sync.Mutex
	declared map[string]menu.Item // by key
	routes   map[string]string    // route -> key, for duplicate detection
}

// NewMenuRegistry creates an empty menu registry.
func NewMenuRegistry(store ports.MenuStore, tx ports.TxRunner, collector *metrics.Collector, logger zerolog.Logger) *MenuRegistry {
	return &MenuRegistry{
		store:    store,
		tx:       tx,
		metrics:  collector,
		logger:   logger,
		declared: make(map[string]menu.Item),
		routes:   make(map[string]string),
	}
}

// Register adds declarations, failing hard on invalid items, duplicate keys,
// or duplicate routes.
func (r *MenuRegistry) Register(items ...menu.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if existing, ok := r.declared[item.Key]; ok {
			return fmt.Errorf("menu item %q declared by both %q and %q", item.Key, existing.Module, item.Module)
		}
		if item.Route != "" {
			if claimed, ok := r.routes[item.Route]; ok {
				return fmt.Errorf("menu route %q declared by both %q and %q", item.Route, r.declared[claimed].Module, item.Module)
			}
			r.routes[item.Route] = item.Key
		}
		r.declared[item.Key] = item
	}
	return nil
}

// Seed syncs every declaration to storage inside a single transaction.
func (r *MenuRegistry) Seed(ctx context.Context, strict bool) error {
	return r.seed(ctx, "", strict)
}

// SeedModule syncs only the named module's declarations.
func (r *MenuRegistry) SeedModule(ctx context.Context, moduleName string, strict bool) error {
	return r.seed(ctx, moduleName, strict)
}

func (r *MenuRegistry) seed(ctx context.Context, moduleName string, strict bool) error {
	items := r.snapshot(moduleName)

	inBatch := make(map[string]bool, len(items))
	for _, item := range items {
		inBatch[item.Key] = true
	}

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		persisted := make(map[string]bool, len(items))

		for pass := 0; pass < maxHierarchyPasses && len(persisted) < len(items); pass++ {
			progress := false
			for _, item := range items {
				if persisted[item.Key] {
					continue
				}
				if item.ParentKey != "" && inBatch[item.ParentKey] && !persisted[item.ParentKey] {
					continue
				}

				if err := r.seedOne(ctx, item); err != nil {
					if strict {
						return fmt.Errorf("seed menu item %q: %w", item.Key, err)
					}
					r.logger.Error().Err(err).Str("key", item.Key).Str("module", item.Module).Msg("menu seed failed")
					if r.metrics != nil {
						r.metrics.RegistryFailures.WithLabelValues("menus").Inc()
					}
				}
				persisted[item.Key] = true
				progress = true
			}
			if !progress {
				break
			}
		}

		if len(persisted) < len(items) {
			r.logger.Warn().
				Int("unresolved", len(items)-len(persisted)).
				Msg("menu hierarchy unresolved after bounded passes")
			for _, item := range items {
				if !persisted[item.Key] {
					if err := r.seedOne(ctx, item); err != nil && strict {
						return fmt.Errorf("seed menu item %q: %w", item.Key, err)
					}
				}
			}
		}
		return nil
	})
}

func (r *MenuRegistry) seedOne(ctx context.Context, item menu.Item) error {
	stored, err := r.store.Get(ctx, item.Key)
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

	if stored.Label != item.Label || stored.Route != item.Route || stored.Icon != item.Icon ||
		stored.ParentKey != item.ParentKey || stored.Position != item.Position {
		if err := r.store.UpdateMetadata(ctx, item); err != nil {
			return err
		}
		r.seeded()
	}
	return nil
}

func (r *MenuRegistry) seeded() {
	if r.metrics != nil {
		r.metrics.RegistrySeeded.WithLabelValues("menus").Inc()
	}
}

// Cleanup removes the module's rows plus in-memory declarations, logging
// children owned by other modules whose parent was just deleted.
func (r *MenuRegistry) Cleanup(ctx context.Context, moduleName string) (int, error) {
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

		for _, it := range owned {
			children, err := r.store.ListChildren(ctx, it.Key)
			if err != nil {
				return err
			}
			for _, child := range children {
				if child.Module != moduleName {
					r.logger.Warn().
						Str("menu_item", child.Key).
						Str("module", child.Module).
						Str("deleted_parent", it.Key).
						Msg("orphaned menu item after cleanup")
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	for key, item := range r.declared {
		if item.Module == moduleName {
			delete(r.declared, key)
			if item.Route != "" {
				delete(r.routes, item.Route)
			}
		}
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistryCleaned.WithLabelValues("menus").Add(float64(removed))
	}
	return removed, nil
}

// Tree builds the resolved menu tree from storage, restricted to items
// owned by enabled modules. Orphans are logged and dropped.
func (r *MenuRegistry) Tree(ctx context.Context, enabled func(moduleName string) bool) ([]*menu.Node, error) {
	all, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}

	var visible []menu.Item
	for _, it := range all {
		if enabled == nil || enabled(it.Module) {
			visible = append(visible, it)
		}
	}

	roots, orphans := menu.BuildTree(visible)
	for _, orphan := range orphans {
		r.logger.Debug().Str("menu_item", orphan.Key).Msg("menu item has no resolvable parent")
	}
	return roots, nil
}

// RouteNames returns the route-name map (key -> route) for the manifest,
// restricted to items owned by enabled modules.
func (r *MenuRegistry) RouteNames(ctx context.Context, enabled func(moduleName string) bool) (map[string]string, error) {
	all, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}

	routes := make(map[string]string)
	for _, it := range all {
		if it.Route == "" {
			continue
		}
		if enabled == nil || enabled(it.Module) {
			routes[it.Key] = it.Route
		}
	}
	return routes, nil
}

// Reset clears all declarations (for tests).
func (r *MenuRegistry) Reset() {
	r.mu.Lock()
	r.declared = make(map[string]menu.Item)
	r.routes = make(map[string]string)
	r.mu.Unlock()
}

func (r *MenuRegistry) snapshot(moduleName string) []menu.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []menu.Item
	for _, item := range r.declared {
		if moduleName == "" || item.Module == moduleName {
			items = append(items, item)
		}
	}
	return items
}
