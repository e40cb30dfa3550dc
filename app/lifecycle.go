package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// Lifecycle drives module state transitions: install, enable, disable and
// uninstall. Each operation takes a per-module lock, so concurrent calls for
// the same module serialize while different modules proceed independently.
type Lifecycle struct {
	catalog    *Catalog
	status     *StatusService
	validator  *Validator
	activator  ports.Activator
	migrator   ports.Migrator
	registries *RegistrySet
	routes     ports.RouteManifestWriter
	clock      ports.Clock
	ids        ports.IDGenerator
	metrics    *metrics.Collector
	logger     zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // keyed by lowercased module name
}

// NewLifecycle creates the lifecycle service.
func NewLifecycle(
	catalog *Catalog,
	status *StatusService,
	validator *Validator,
	activator ports.Activator,
	migrator ports.Migrator,
	registries *RegistrySet,
	routes ports.RouteManifestWriter,
	clock ports.Clock,
	ids ports.IDGenerator,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *Lifecycle {
	return &Lifecycle{
		catalog:    catalog,
		status:     status,
		validator:  validator,
		activator:  activator,
		migrator:   migrator,
		registries: registries,
		routes:     routes,
		clock:      clock,
		ids:        ids,
		metrics:    collector,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// InstallOptions tunes a single install run.
type InstallOptions struct {
	// WithSeed runs the module's database seeders after migration. A seed
	// failure aborts the install and reverts the installed flag.
	WithSeed bool

	// SkipScan bypasses the source scan during dependency validation.
	// Declared dependencies are still checked.
	SkipScan bool
}

// Install transitions a module from uninstalled to installed and active:
// validates dependencies, runs migrations (with a legacy-path fallback),
// optionally seeds, then enables. Installing an already-installed module is
// a no-op.
func (l *Lifecycle) Install(ctx context.Context, name string, opts InstallOptions) error {
	unlock := l.lock(name)
	defer unlock()
	return l.observe("install", name, func(log zerolog.Logger) error {
		return l.install(ctx, name, opts, log)
	})
}

// Enable activates an installed module, seeds its registries, and rebuilds
// the route manifest. Enabling an active module is a no-op.
func (l *Lifecycle) Enable(ctx context.Context, name string) error {
	unlock := l.lock(name)
	defer unlock()
	return l.observe("enable", name, func(log zerolog.Logger) error {
		desc, ok := l.catalog.Get(name)
		if !ok {
			return &module.NotFoundError{Module: name}
		}
		st, err := l.status.Get(ctx, desc.Name)
		if err != nil || !st.Installed {
			return fmt.Errorf("module %q is not installed", desc.Name)
		}
		if st.Active {
			return nil
		}
		return l.enable(ctx, desc, false, log)
	})
}

// Disable deactivates a module. Protected modules refuse; so does any module
// that an enabled module still depends on.
func (l *Lifecycle) Disable(ctx context.Context, name string) error {
	unlock := l.lock(name)
	defer unlock()
	return l.observe("disable", name, func(log zerolog.Logger) error {
		desc, ok := l.catalog.Get(name)
		if !ok {
			return &module.NotFoundError{Module: name}
		}
		if desc.Protected {
			return &module.ProtectedModuleError{Module: desc.Name, Operation: "disable"}
		}
		st, err := l.status.Get(ctx, desc.Name)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("status of %q: %w", desc.Name, err)
		}
		if !st.Installed || !st.Active {
			return nil
		}

		if dependents := l.enabledDependents(ctx, desc.Name); len(dependents) > 0 {
			return &module.ReverseDependencyError{
				Module:     desc.Name,
				Dependents: dependents,
				Operation:  "disable",
			}
		}

		if err := l.activator.SetActive(ctx, desc.Name, false); err != nil {
			return fmt.Errorf("deactivate %q: %w", desc.Name, err)
		}
		l.status.Invalidate()

		log.Info().Msg("module disabled")
		return l.finalize(ctx, log)
	})
}

// Uninstall removes an installed module: deactivates it, rolls back its
// migrations, and cleans every registry row it owns. The status row is kept
// (installed=false) so the module can be reinstalled; Remove deletes it.
func (l *Lifecycle) Uninstall(ctx context.Context, name string) error {
	unlock := l.lock(name)
	defer unlock()
	return l.observe("uninstall", name, func(log zerolog.Logger) error {
		desc, ok := l.catalog.Get(name)
		if !ok {
			return &module.NotFoundError{Module: name}
		}
		if desc.Protected {
			return &module.ProtectedModuleError{Module: desc.Name, Operation: "uninstall"}
		}
		st, err := l.status.Get(ctx, desc.Name)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("status of %q: %w", desc.Name, err)
		}
		if !st.Installed {
			return nil
		}

		if dependents := l.installedDependents(ctx, desc.Name); len(dependents) > 0 {
			return &module.ReverseDependencyError{
				Module:     desc.Name,
				Dependents: dependents,
				Operation:  "uninstall",
			}
		}

		if st.Active {
			if err := l.activator.SetActive(ctx, desc.Name, false); err != nil {
				return fmt.Errorf("deactivate %q: %w", desc.Name, err)
			}
		}

		if err := l.migrator.Rollback(ctx, desc); err != nil {
			return fmt.Errorf("rollback %q: %w", desc.Name, err)
		}

		if err := l.registries.Cleanup(ctx, desc.Name); err != nil {
			return fmt.Errorf("cleanup %q: %w", desc.Name, err)
		}

		if err := l.status.MarkInstalled(ctx, desc.Name, false, nil); err != nil {
			return fmt.Errorf("mark uninstalled %q: %w", desc.Name, err)
		}

		log.Info().Msg("module uninstalled")
		return l.finalize(ctx, log)
	})
}

// Remove deletes the status row of a module that is no longer on disk.
// Installed modules must be uninstalled first.
func (l *Lifecycle) Remove(ctx context.Context, name string) error {
	unlock := l.lock(name)
	defer unlock()
	return l.observe("remove", name, func(log zerolog.Logger) error {
		st, err := l.status.Get(ctx, name)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil
			}
			return err
		}
		if st.Installed {
			return fmt.Errorf("module %q is installed; uninstall it first", st.Name)
		}
		if err := l.status.Delete(ctx, st.Name); err != nil {
			return err
		}
		log.Info().Msg("module status removed")
		return nil
	})
}

func (l *Lifecycle) install(ctx context.Context, name string, opts InstallOptions, log zerolog.Logger) error {
	desc, ok := l.catalog.Get(name)
	if !ok {
		return &module.NotFoundError{Module: name}
	}

	if st, err := l.status.Get(ctx, desc.Name); err == nil && st.Installed {
		log.Debug().Msg("module already installed")
		return nil
	}

	// Dependencies must be installed before this module; they do not have
	// to be enabled yet, enable checks that.
	if _, err := l.validator.CheckInstalled(ctx, desc, l.status, false, opts.SkipScan); err != nil {
		return err
	}

	if err := l.status.Register(ctx, module.Status{
		Name:    desc.Name,
		Version: desc.Version,
	}); err != nil {
		return fmt.Errorf("register %q: %w", desc.Name, err)
	}

	now := l.clock.Now()
	if err := l.status.MarkInstalled(ctx, desc.Name, true, &now); err != nil {
		return fmt.Errorf("mark installed %q: %w", desc.Name, err)
	}

	// Migrations may reference the module's own tables through code that
	// consults the activator, so the flag goes up before migrating and the
	// whole install reverts on failure.
	if err := l.activator.SetActive(ctx, desc.Name, true); err != nil {
		l.revertInstall(ctx, desc.Name, log)
		return fmt.Errorf("activate %q: %w", desc.Name, err)
	}
	l.status.Invalidate()

	applied, err := l.migrator.Migrate(ctx, desc)
	if err != nil {
		l.revertInstall(ctx, desc.Name, log)
		return fmt.Errorf("migrate %q: %w", desc.Name, err)
	}
	if applied == 0 {
		// Older modules keep migrations under database/migrations.
		legacy := filepath.Join(desc.Path, "database", "migrations")
		applied, err = l.migrator.MigratePath(ctx, desc, legacy)
		if err != nil {
			l.revertInstall(ctx, desc.Name, log)
			return fmt.Errorf("migrate %q from %s: %w", desc.Name, legacy, err)
		}
	}
	log.Debug().Int("applied", applied).Msg("module migrations applied")

	if opts.WithSeed {
		if err := l.migrator.Seed(ctx, desc); err != nil {
			l.revertInstall(ctx, desc.Name, log)
			return &module.SeedError{Module: desc.Name, Err: err}
		}
	}

	// Install already validated with the caller's scan preference.
	if err := l.enable(ctx, desc, true, log); err != nil {
		l.revertInstall(ctx, desc.Name, log)
		return err
	}

	if err := l.status.UpdateVersion(ctx, desc.Name, desc.Version); err != nil {
		log.Warn().Err(err).Msg("version update failed")
	}

	log.Info().Str("version", desc.Version).Msg("module installed")
	return nil
}

// enable activates the module and seeds its registries. Caller holds the
// module lock.
func (l *Lifecycle) enable(ctx context.Context, desc module.Descriptor, skipScan bool, log zerolog.Logger) error {
	if _, err := l.validator.CheckInstalled(ctx, desc, l.status, true, skipScan); err != nil {
		return err
	}

	if err := l.activator.SetActive(ctx, desc.Name, true); err != nil {
		return fmt.Errorf("activate %q: %w", desc.Name, err)
	}
	l.status.Invalidate()

	if err := l.registries.SeedModule(ctx, desc.Name, false); err != nil {
		return fmt.Errorf("seed registries for %q: %w", desc.Name, err)
	}

	log.Info().Msg("module enabled")
	return l.finalize(ctx, log)
}

// finalize runs after any transition that changes the active set: rebuilds
// the frontend route-name manifest and drops cached scans, so the next
// validation sees fresh state.
func (l *Lifecycle) finalize(ctx context.Context, log zerolog.Logger) error {
	routes, err := l.registries.Menus.RouteNames(ctx, l.activator.Enabled)
	if err != nil {
		return fmt.Errorf("collect route names: %w", err)
	}
	if err := l.routes.Write(ctx, routes); err != nil {
		return fmt.Errorf("write route manifest: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ManifestRebuilds.Inc()
	}

	if err := l.validator.InvalidateScans(ctx); err != nil {
		log.Warn().Err(err).Msg("scan cache invalidation failed")
	}
	return nil
}

// revertInstall undoes the installed and active flags after a failed install.
// Best effort: the original failure is what gets reported.
func (l *Lifecycle) revertInstall(ctx context.Context, name string, log zerolog.Logger) {
	if err := l.activator.SetActive(ctx, name, false); err != nil {
		log.Warn().Err(err).Msg("install revert: deactivate failed")
	}
	if err := l.status.MarkInstalled(ctx, name, false, nil); err != nil {
		log.Warn().Err(err).Msg("install revert: status flag reset failed")
	}
}

// enabledDependents returns enabled modules that declare name as a dependency.
func (l *Lifecycle) enabledDependents(ctx context.Context, name string) []string {
	var result []string
	for _, dep := range l.catalog.Dependents(name) {
		if l.status.IsEnabled(ctx, dep) {
			result = append(result, dep)
		}
	}
	return result
}

// installedDependents returns installed modules that declare name as a
// dependency.
func (l *Lifecycle) installedDependents(ctx context.Context, name string) []string {
	var result []string
	for _, dep := range l.catalog.Dependents(name) {
		if l.status.IsInstalled(ctx, dep) {
			result = append(result, dep)
		}
	}
	return result
}

// lock returns the unlock function for the module's keyed mutex.
func (l *Lifecycle) lock(name string) func() {
	key := strings.ToLower(name)
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// observe wraps an operation with a correlation id, timing and metrics.
func (l *Lifecycle) observe(operation, name string, fn func(log zerolog.Logger) error) error {
	log := l.logger.With().
		Str("op_id", l.ids.New()).
		Str("operation", operation).
		Str("module", name).
		Logger()

	start := time.Now()
	err := fn(log)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("lifecycle operation failed")
	}
	if l.metrics != nil {
		l.metrics.LifecycleOps.WithLabelValues(operation, outcome).Inc()
		l.metrics.LifecycleDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
	return err
}
