package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

// Discovery scans the modules directory, keeps the catalog in sync with what
// is on disk, and installs protected modules at boot.
type Discovery struct {
	root          string
	loader        ports.ManifestLoader
	catalog       *Catalog
	status        *StatusService
	lifecycle     *Lifecycle
	seedOnInstall bool
	metrics       *metrics.Collector
	logger        zerolog.Logger
}

// NewDiscovery creates the discovery service. root is the modules directory;
// seedOnInstall controls whether boot-time protected installs run seeders.
func NewDiscovery(
	root string,
	loader ports.ManifestLoader,
	catalog *Catalog,
	status *StatusService,
	lifecycle *Lifecycle,
	seedOnInstall bool,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *Discovery {
	return &Discovery{
		root:          root,
		loader:        loader,
		catalog:       catalog,
		status:        status,
		lifecycle:     lifecycle,
		seedOnInstall: seedOnInstall,
		metrics:       collector,
		logger:        logger,
	}
}

// Refresh reloads every manifest from disk, replaces the catalog, registers
// status rows for newly discovered modules and records version changes.
// Returns the discovered descriptors.
func (d *Discovery) Refresh(ctx context.Context) ([]module.Descriptor, error) {
	descriptors, err := d.loader.LoadAll(d.root)
	if err != nil {
		return nil, fmt.Errorf("scan modules directory %s: %w", d.root, err)
	}

	d.catalog.Replace(descriptors)

	for _, desc := range descriptors {
		st, err := d.status.Get(ctx, desc.Name)
		if err != nil {
			if err := d.status.Register(ctx, module.Status{
				Name:    desc.Name,
				Version: desc.Version,
			}); err != nil {
				d.logger.Warn().Err(err).Str("module", desc.Name).Msg("status registration failed")
			}
			continue
		}
		if st.Version != desc.Version && !st.Installed {
			// Installed modules keep their recorded version until the
			// next install run migrates them.
			if err := d.status.UpdateVersion(ctx, desc.Name, desc.Version); err != nil {
				d.logger.Warn().Err(err).Str("module", desc.Name).Msg("version update failed")
			}
		}
	}

	if d.metrics != nil {
		d.metrics.DiscoveryRuns.Inc()
		d.metrics.ModulesKnown.Set(float64(len(descriptors)))
		active := 0
		for _, desc := range descriptors {
			if d.status.IsEnabled(ctx, desc.Name) {
				active++
			}
		}
		d.metrics.ModulesActive.Set(float64(active))
	}

	d.logger.Info().Int("modules", len(descriptors)).Msg("module discovery complete")
	return descriptors, nil
}

// Orphans returns status rows whose module no longer exists on disk.
func (d *Discovery) Orphans(ctx context.Context) ([]module.Status, error) {
	all, err := d.status.All(ctx)
	if err != nil {
		return nil, err
	}
	var orphans []module.Status
	for _, st := range all {
		if _, ok := d.catalog.Get(st.Name); !ok {
			orphans = append(orphans, st)
		}
	}
	return orphans, nil
}

// InstallProtected installs every protected module that is not installed
// yet. Modules are attempted in dependency order over bounded passes, so a
// protected module whose dependency is also protected installs once the
// dependency has. Individual failures are logged and skipped; a dependency
// cycle degrades to a warning rather than blocking boot.
func (d *Discovery) InstallProtected(ctx context.Context) error {
	var pending []module.Descriptor
	for _, desc := range d.catalog.All() {
		if desc.Protected && !d.status.IsInstalled(ctx, desc.Name) {
			pending = append(pending, desc)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	pending = module.SortForInstall(pending)

	failed := make(map[string]bool)
	maxPasses := 2 * len(pending)
	for pass := 0; pass < maxPasses && len(pending) > 0; pass++ {
		var next []module.Descriptor
		for _, desc := range pending {
			if !d.depsReady(ctx, desc, failed) {
				next = append(next, desc)
				continue
			}
			err := d.lifecycle.Install(ctx, desc.Name, InstallOptions{WithSeed: d.seedOnInstall})
			if err != nil {
				d.logger.Error().Err(err).Str("module", desc.Name).Msg("protected module install failed")
				failed[strings.ToLower(desc.Name)] = true
				continue
			}
		}
		if len(next) == len(pending) {
			// No progress this pass; the remainder is blocked.
			pending = next
			break
		}
		pending = next
	}

	for _, desc := range pending {
		d.logger.Warn().
			Str("module", desc.Name).
			Strs("requires", desc.Requires).
			Msg("protected module left uninstalled; dependencies unresolved")
	}
	return nil
}

// depsReady reports whether every declared dependency of desc is installed
// and none of them has already failed this run.
func (d *Discovery) depsReady(ctx context.Context, desc module.Descriptor, failed map[string]bool) bool {
	for _, dep := range desc.Requires {
		if failed[strings.ToLower(dep)] {
			return false
		}
		if !d.status.IsInstalled(ctx, dep) {
			return false
		}
	}
	return true
}
