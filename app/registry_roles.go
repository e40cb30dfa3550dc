package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/role"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// RolesRegistry collects role declarations made by modules at boot and syncs
// them to storage. Duplicate role names across modules are a hard error.
type RolesRegistry struct {
	store   ports.RoleStore
	tx      ports.TxRunner
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu       sync.Mutex
	declared map[string]role.Role // by name
}

// NewRolesRegistry creates an empty roles registry.
func NewRolesRegistry(store ports.RoleStore, tx ports.TxRunner, collector *metrics.Collector, logger zerolog.Logger) *RolesRegistry {
	return &RolesRegistry{
		store:    store,
		tx:       tx,
		metrics:  collector,
		logger:   logger,
		declared: make(map[string]role.Role),
	}
}

// Register adds declarations, failing hard on invalid or duplicate names.
func (r *RolesRegistry) Register(items ...role.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if existing, ok := r.declared[item.Name]; ok {
			return fmt.Errorf("role %q declared by both %q and %q", item.Name, existing.Module, item.Module)
		}
		r.declared[item.Name] = item
	}
	return nil
}

// Seed syncs every declaration to storage inside a single transaction.
func (r *RolesRegistry) Seed(ctx context.Context, strict bool) error {
	return r.seed(ctx, "", strict)
}

// SeedModule syncs only the named module's declarations.
func (r *RolesRegistry) SeedModule(ctx context.Context, moduleName string, strict bool) error {
	return r.seed(ctx, moduleName, strict)
}

func (r *RolesRegistry) seed(ctx context.Context, moduleName string, strict bool) error {
	items := r.snapshot(moduleName)

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			if err := r.seedOne(ctx, item); err != nil {
				if strict {
					return fmt.Errorf("seed role %q: %w", item.Name, err)
				}
				r.logger.Error().Err(err).Str("name", item.Name).Str("module", item.Module).Msg("role seed failed")
				if r.metrics != nil {
					r.metrics.RegistryFailures.WithLabelValues("roles").Inc()
				}
			}
		}
		return nil
	})
}

func (r *RolesRegistry) seedOne(ctx context.Context, item role.Role) error {
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

	if stored.Label != item.Label || !equalStrings(stored.Permissions, item.Permissions) {
		if err := r.store.UpdateMetadata(ctx, item); err != nil {
			return err
		}
		r.seeded()
	}
	return nil
}

func (r *RolesRegistry) seeded() {
	if r.metrics != nil {
		r.metrics.RegistrySeeded.WithLabelValues("roles").Inc()
	}
}

// Cleanup removes the module's rows plus its in-memory declarations.
func (r *RolesRegistry) Cleanup(ctx context.Context, moduleName string) (int, error) {
	var removed int
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := r.store.DeleteByModule(ctx, moduleName)
		removed = n
		return err
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
		r.metrics.RegistryCleaned.WithLabelValues("roles").Add(float64(removed))
	}
	return removed, nil
}

// Reset clears all declarations (for tests).
func (r *RolesRegistry) Reset() {
	r.mu.Lock()
	r.declared = make(map[string]role.Role)
	r.mu.Unlock()
}

func (r *RolesRegistry) snapshot(moduleName string) []role.Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []role.Role
	for _, item := range r.declared {
		if moduleName == "" || item.Module == moduleName {
			items = append(items, item)
		}
	}
	return items
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
