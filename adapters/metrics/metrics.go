// Package metrics provides Prometheus metrics collection for the module
// lifecycle manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the lifecycle subsystem.
type Collector struct {
	// Lifecycle metrics
	LifecycleOps      *prometheus.CounterVec
	LifecycleDuration *prometheus.HistogramVec

	// Validation metrics
	ValidationDuration prometheus.Histogram
	ScanCacheHits      prometheus.Counter
	ScanCacheMisses    prometheus.Counter

	// Registry metrics
	RegistrySeeded   *prometheus.CounterVec
	RegistryCleaned  *prometheus.CounterVec
	RegistryFailures *prometheus.CounterVec

	// Discovery metrics
	ModulesKnown     prometheus.Gauge
	ModulesActive    prometheus.Gauge
	DiscoveryRuns    prometheus.Counter
	ManifestRebuilds prometheus.Counter
}

// New creates a metrics collector registered on its own registry, so tests
// can create collectors freely without duplicate-registration panics.
func New() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	c := &Collector{
		LifecycleOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "lifecycle_operations_total",
				Help:      "Module lifecycle operations by type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		LifecycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tooldock",
				Name:      "lifecycle_operation_duration_seconds",
				Help:      "Duration of module lifecycle operations",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		ValidationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tooldock",
				Name:      "validation_duration_seconds",
				Help:      "Duration of dependency validation passes",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		ScanCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "scan_cache_hits_total",
				Help:      "Dependency scan results served from cache",
			},
		),
		ScanCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "scan_cache_misses_total",
				Help:      "Dependency scans that had to walk the source tree",
			},
		),
		RegistrySeeded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "registry_rows_seeded_total",
				Help:      "Registry rows created or updated during seeding",
			},
			[]string{"registry"},
		),
		RegistryCleaned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "registry_rows_cleaned_total",
				Help:      "Registry rows removed during module cleanup",
			},
			[]string{"registry"},
		),
		RegistryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "registry_seed_failures_total",
				Help:      "Per-item registry seeding failures",
			},
			[]string{"registry"},
		),
		ModulesKnown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tooldock",
				Name:      "modules_known",
				Help:      "Number of discovered modules",
			},
		),
		ModulesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tooldock",
				Name:      "modules_active",
				Help:      "Number of active modules",
			},
		),
		DiscoveryRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "discovery_runs_total",
				Help:      "Filesystem discovery passes",
			},
		),
		ManifestRebuilds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tooldock",
				Name:      "route_manifest_rebuilds_total",
				Help:      "Route-name manifest regenerations",
			},
		),
	}

	reg.MustRegister(
		c.LifecycleOps,
		c.LifecycleDuration,
		c.ValidationDuration,
		c.ScanCacheHits,
		c.ScanCacheMisses,
		c.RegistrySeeded,
		c.RegistryCleaned,
		c.RegistryFailures,
		c.ModulesKnown,
		c.ModulesActive,
		c.DiscoveryRuns,
		c.ManifestRebuilds,
	)
	return c, reg
}
