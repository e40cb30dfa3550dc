package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/setting"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// SettingsRegistry collects setting declarations made by modules at boot and
// syncs them to storage. Duplicate keys across modules are a hard error at
// registration time. Seeding creates missing rows and refreshes metadata on
// existing ones, never overwriting user-edited values.
type SettingsRegistry struct {
	store   ports.SettingStore
	tx      ports.TxRunner
	metrics *metrics.Collector
	logger  zerolog.Logger

	mu       sync.Mutex
	declared map[string]setting.Setting // by key
}

// NewSettingsRegistry creates an empty settings registry.
func NewSettingsRegistry(store ports.SettingStore, tx ports.TxRunner, collector *metrics.Collector, logger zerolog.Logger) *SettingsRegistry {
	return &SettingsRegistry{
		store:    store,
		tx:       tx,
		metrics:  collector,
		logger:   logger,
		declared: make(map[string]setting.Setting),
	}
}

// Register adds declarations, failing hard on invalid or duplicate keys.
func (r *SettingsRegistry) Register(items ...setting.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if existing, ok := r.declared[item.Key]; ok {
			return fmt.Errorf("setting %q declared by both %q and %q", item.Key, existing.Module, item.Module)
		}
		r.declared[item.Key] = item
	}
	return nil
}

// Seed syncs every declaration to storage inside a single transaction.
// Per-item failures are logged and skipped unless strict, in which case the
// first failure aborts the transaction.
func (r *SettingsRegistry) Seed(ctx context.Context, strict bool) error {
	return r.seed(ctx, "", strict)
}

// SeedModule syncs only the named module's declarations.
func (r *SettingsRegistry) SeedModule(ctx context.Context, moduleName string, strict bool) error {
	return r.seed(ctx, moduleName, strict)
}

func (r *SettingsRegistry) seed(ctx context.Context, moduleName string, strict bool) error {
	items := r.snapshot(moduleName)

	return r.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			if err := r.seedOne(ctx, item); err != nil {
				if strict {
					return fmt.Errorf("seed setting %q: %w", item.Key, err)
				}
				r.logger.Error().Err(err).Str("key", item.Key).Str("module", item.Module).Msg("setting seed failed")
				if r.metrics != nil {
					r.metrics.RegistryFailures.WithLabelValues("settings").Inc()
				}
			}
		}
		return nil
	})
}

func (r *SettingsRegistry) seedOne(ctx context.Context, item setting.Setting) error {
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

	if item.MetadataChanged(stored) {
		if err := r.store.UpdateMetadata(ctx, item); err != nil {
			return err
		}
		r.seeded()
	}
	return nil
}

func (r *SettingsRegistry) seeded() {
	if r.metrics != nil {
		r.metrics.RegistrySeeded.WithLabelValues("settings").Inc()
	}
}

// Cleanup removes the module's rows from storage and drops its in-memory
// declarations.
func (r *SettingsRegistry) Cleanup(ctx context.Context, moduleName string) (int, error) {
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
	for key, item := range r.declared {
		if item.Module == moduleName {
			delete(r.declared, key)
		}
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RegistryCleaned.WithLabelValues("settings").Add(float64(removed))
	}
	return removed, nil
}

// Reset clears all declarations (for tests).
func (r *SettingsRegistry) Reset() {
	r.mu.Lock()
	r.declared = make(map[string]setting.Setting)
	r.mu.Unlock()
}

// snapshot copies declarations, optionally filtered by module.
func (r *SettingsRegistry) snapshot(moduleName string) []setting.Setting {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []setting.Setting
	for _, item := range r.declared {
		if moduleName == "" || item.Module == moduleName {
			items = append(items, item)
		}
	}
	return items
}
