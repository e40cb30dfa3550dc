package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/rs/zerolog"
)

const (
	// scanCacheTTL keeps scan results across restarts of a deployment;
	// the fingerprint in the key invalidates on any source change.
	scanCacheTTL = 72 * time.Hour

	// scanCacheTag groups all scan entries for bulk invalidation.
	scanCacheTag = "depscan"

	// slowValidationThreshold triggers a soft warning in the log when a
	// single validation pass takes longer than this.
	slowValidationThreshold = 100 * time.Millisecond
)

// Validator checks a module's declared dependencies against reality: every
// declared dependency must exist as a discovered module, and (unless
// skipped) a static scan of the module's source must not reference modules
// outside the declared set.
type Validator struct {
	catalog *Catalog
	scanner ports.SourceScanner
	cache   ports.Cache
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewValidator creates a dependency validator.
func NewValidator(catalog *Catalog, scanner ports.SourceScanner, cache ports.Cache, collector *metrics.Collector, logger zerolog.Logger) *Validator {
	return &Validator{
		catalog: catalog,
		scanner: scanner,
		cache:   cache,
		metrics: collector,
		logger:  logger,
	}
}

// Validate returns the module's normalized dependency names. It fails with a
// MissingDependencyError when a declared dependency does not exist as a
// module, or when the source scan finds an undeclared cross-module
// reference. skipScan bypasses the source scan only; declared dependencies
// are always checked for existence.
func (v *Validator) Validate(ctx context.Context, desc module.Descriptor, skipScan bool) ([]string, error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if v.metrics != nil {
			v.metrics.ValidationDuration.Observe(elapsed.Seconds())
		}
		if elapsed > slowValidationThreshold {
			v.logger.Warn().
				Str("module", desc.Name).
				Dur("elapsed", elapsed).
				Msg("dependency validation slow")
		}
	}()

	canonical := v.catalog.CanonicalNames()
	declared := module.Normalize(desc.Requires, canonical)

	// Declared dependencies must exist as discovered modules.
	var missing []string
	for _, dep := range declared {
		if _, ok := v.catalog.Get(dep); !ok {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return nil, &module.MissingDependencyError{
			Module:       desc.Name,
			Dependencies: missing,
			Reason:       "nonexistent",
		}
	}

	if skipScan {
		return declared, nil
	}

	refs, err := v.scanDependencies(ctx, desc)
	if err != nil {
		return nil, err
	}

	declaredSet := make(map[string]bool, len(declared))
	for _, dep := range declared {
		declaredSet[strings.ToLower(dep)] = true
	}

	var undeclared []string
	for _, ref := range refs {
		if !declaredSet[strings.ToLower(ref)] {
			undeclared = append(undeclared, ref)
		}
	}
	if len(undeclared) > 0 {
		return nil, &module.MissingDependencyError{
			Module:       desc.Name,
			Dependencies: module.Normalize(undeclared, canonical),
			Reason:       "undeclared",
		}
	}

	return declared, nil
}

// CheckInstalled validates the module, then requires each dependency to be
// installed and, when checkEnabled, also enabled.
func (v *Validator) CheckInstalled(ctx context.Context, desc module.Descriptor, status *StatusService, checkEnabled, skipScan bool) ([]string, error) {
	deps, err := v.Validate(ctx, desc, skipScan)
	if err != nil {
		return nil, err
	}

	var notInstalled, notEnabled []string
	for _, dep := range deps {
		if !status.IsInstalled(ctx, dep) {
			notInstalled = append(notInstalled, dep)
			continue
		}
		if checkEnabled && !status.IsEnabled(ctx, dep) {
			notEnabled = append(notEnabled, dep)
		}
	}

	if len(notInstalled) > 0 {
		return nil, &module.MissingDependencyError{
			Module:       desc.Name,
			Dependencies: notInstalled,
			Reason:       "not installed",
		}
	}
	if len(notEnabled) > 0 {
		return nil, &module.MissingDependencyError{
			Module:       desc.Name,
			Dependencies: notEnabled,
			Reason:       "not enabled",
		}
	}

	return deps, nil
}

// InvalidateScans drops every cached scan result.
func (v *Validator) InvalidateScans(ctx context.Context) error {
	return v.cache.InvalidateTag(ctx, scanCacheTag)
}

// scanDependencies returns cross-module references from the module's source,
// cached keyed on name, version and a source-tree fingerprint.
func (v *Validator) scanDependencies(ctx context.Context, desc module.Descriptor) ([]string, error) {
	fingerprint, err := v.scanner.Fingerprint(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("fingerprint module %q: %w", desc.Name, err)
	}
	key := fmt.Sprintf("depscan:%s:%s:%s", strings.ToLower(desc.Name), desc.Version, fingerprint)

	if cached, ok, err := v.cache.Get(ctx, key); err == nil && ok {
		var refs []string
		if err := json.Unmarshal(cached, &refs); err == nil {
			if v.metrics != nil {
				v.metrics.ScanCacheHits.Inc()
			}
			return refs, nil
		}
	}
	if v.metrics != nil {
		v.metrics.ScanCacheMisses.Inc()
	}

	refs, err := v.scanner.Scan(ctx, desc.Path, desc.Name)
	if err != nil {
		return nil, fmt.Errorf("scan module %q: %w", desc.Name, err)
	}

	if data, err := json.Marshal(refs); err == nil {
		if err := v.cache.Set(ctx, key, data, scanCacheTTL, scanCacheTag); err != nil {
			v.logger.Warn().Err(err).Str("module", desc.Name).Msg("scan cache write failed")
		}
	}

	return refs, nil
}
