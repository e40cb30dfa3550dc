package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/category"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// CategoriesRegistry collects category declarations made by modules at boot
// and syncs them to storage. Duplicate slugs across modules are a hard
// error; parent references resolve in bounded passes.
type CategoriesRegistry struct {
	store   ports.CategoryStore
	tx      ports.TxRunner
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu       sync.Mutex
	declared map[string]category.Category // by slug
}

// NewCategoriesRegistry creates an empty categories registry.
func NewCategoriesRegistry(store ports.CategoryStore, tx ports.TxRunner, collector *metrics.Collector, logger zerolog.Logger) *CategoriesRegistry {
	return &CategoriesRegistry{
		store:    store,
		tx:       tx,
		metrics:  collector,
		logger:   logger,
		declared: make(map[string]category.Category),
	}
}

// Register adds declarations, failing hard on invalid or duplicate slugs.
func (r *CategoriesRegistry) Register(items ...category.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if existing, ok := r.declared[item.Slug]; ok {
			return fmt.Errorf("category %q declared by both %q and %q", item.Slug, existing.Module, item.Module)
		}
		r.declared[item.Slug] = item
	}
	return nil
}

// Seed syncs every declaration to storage inside a single transaction.
func (r *CategoriesRegistry) Seed(ctx context.Context, strict bool) error {
	return r.seed(ctx, "", strict)
}

// SeedModule syncs only the named module's declarations.
func (r *CategoriesRegistry) SeedModule(ctx context.Context, moduleName string, strict bool) error {
	return r.seed(ctx, moduleName, strict)
}

func (r *CategoriesRegistry) seed(ctx context.Context, moduleName string, strict bool) error {
	items := r.snapshot(moduleName)

	inBatch := make(map[string]bool, len(items))
	for _, item := range items {
		inBatch[item.Slug] = true
	}

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		persisted := make(map[string]bool, len(items))

		for pass := 0; pass < maxHierarchyPasses && len(persisted) < len(items); pass++ {
			progress := false
			for _, item := range items {
				if persisted[item.Slug] {
					continue
				}
				if item.ParentSlug != "" && inBatch[item.ParentSlug] && !persisted[item.ParentSlug] {
					continue
				}

				if err := r.seedOne(ctx, item); err != nil {
					if strict {
						return fmt.Errorf("seed category %q: %w", item.Slug, err)
					}
					r.logger.Error().Err(err).Str("slug", item.Slug).Str("module", item.Module).Msg("category seed failed")
					if r.metrics != nil {
						r.metrics.RegistryFailures.WithLabelValues("categories").Inc()
					}
				}
				persisted[item.Slug] = true
				progress = true
			}
			if !progress {
				break
			}
		}

		if len(persisted) < len(items) {
			r.logger.Warn().
				Int("unresolved", len(items)-len(persisted)).
				Msg("category hierarchy unresolved after bounded passes")
			for _, item := range items {
				if !persisted[item.Slug] {
					if err := r.seedOne(ctx, item); err != nil && strict {
						return fmt.Errorf("seed category %q: %w", item.Slug, err)
					}
				}
			}
		}
		return nil
	})
}

func (r *CategoriesRegistry) seedOne(ctx context.Context, item category.Category) error {
	stored, err := r.store.Get(ctx, item.Slug)
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

	if stored.Label != item.Label || stored.ParentSlug != item.ParentSlug || stored.Position != item.Position {
		if err := r.store.UpdateMetadata(ctx, item); err != nil {
			return err
		}
		r.seeded()
	}
	return nil
}

func (r *CategoriesRegistry) seeded() {
	if r.metrics != nil {
		r.metrics.RegistrySeeded.WithLabelValues("categories").Inc()
	}
}

// Cleanup removes the module's rows plus in-memory declarations, logging
// children owned by other modules whose parent was just deleted.
func (r *CategoriesRegistry) Cleanup(ctx context.Context, moduleName string) (int, error) {
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

		for _, c := range owned {
			children, err := r.store.ListChildren(ctx, c.Slug)
			if err != nil {
				return err
			}
			for _, child := range children {
				if child.Module != moduleName {
					r.logger.Warn().
						Str("category", child.Slug).
						Str("module", child.Module).
						Str("deleted_parent", c.Slug).
						Msg("orphaned category after cleanup")
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	for slug, item := range r.declared {
		if item.Module == moduleName {
			delete(r.declared, slug)
		}
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistryCleaned.WithLabelValues("categories").Add(float64(removed))
	}
	return removed, nil
}

// Reset clears all declarations (for tests).
func (r *CategoriesRegistry) Reset() {
	r.mu.Lock()
	r.declared = make(map[string]category.Category)
	r.mu.Unlock()
}

func (r *CategoriesRegistry) snapshot(moduleName string) []category.Category {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []category.Category
	for _, item := range r.declared {
		if moduleName == "" || item.Module == moduleName {
			items = append(items, item)
		}
	}
	return items
}
