// Package bootstrap wires all dependencies and starts the module host:
// database, services, registries, discovery, the HTTP server and the
// module-directory watcher.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fazaimron27/tooldock/adapters/clock"
	"github.com/fazaimron27/tooldock/adapters/idgen"
	"github.com/fazaimron27/tooldock/adapters/manifest"
	"github.com/fazaimron27/tooldock/adapters/memory"
	"github.com/fazaimron27/tooldock/adapters/metrics"
	"github.com/fazaimron27/tooldock/adapters/scan"
	"github.com/fazaimron27/tooldock/adapters/sqlite"
	"github.com/fazaimron27/tooldock/app"
	"github.com/fazaimron27/tooldock/config"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger          zerolog.Logger
	Config          *config.Config
	DB              *sqlite.DB
	HTTPServer      *http.Server
	Metrics         *metrics.Collector
	MetricsRegistry *prometheus.Registry

	Catalog    *app.Catalog
	Status     *app.StatusService
	Activator  *app.DatabaseActivator
	Validator  *app.Validator
	Registries *app.RegistrySet
	Lifecycle  *app.Lifecycle
	Discovery  *app.Discovery

	loader *manifest.Loader
	holder *config.Holder
	watch  *moduleWatcher
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg)
	logger.Info().Msg("initializing tooldock")

	a := &App{
		Logger: logger,
		Config: cfg,
		loader: manifest.NewLoader(),
	}

	if err := a.initDatabase(); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.initServices()
	a.initHTTPServer()
	return a, nil
}

// NewWithHotReload creates the application with a config file watcher.
// Reloadable fields take effect on the next operation; the rest need a
// restart.
func NewWithHotReload(path string) (*App, error) {
	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	holder, err := config.NewHolder(path, bootLogger)
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get())
	if err != nil {
		holder.Stop()
		return nil, err
	}
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		a.Config = cfg
		setLogLevel(cfg.Logging.Level)
	})
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config watch unavailable")
	}
	holder.WatchSignals()
	return a, nil
}

func (a *App) initDatabase() error {
	db, err := sqlite.Open(a.Config.Database.DSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	a.Logger.Info().Str("dsn", a.Config.Database.DSN).Msg("database initialized")
	return nil
}

func (a *App) initServices() {
	collector, registry := metrics.New()
	a.Metrics = collector
	if a.Config.Metrics.Enabled {
		a.MetricsRegistry = registry
	}

	clk := clock.Real{}
	a.Catalog = app.NewCatalog()

	statusStore := sqlite.NewStatusStore(a.DB)
	a.Status = app.NewStatusService(statusStore, a.Logger)
	a.Activator = app.NewDatabaseActivator(statusStore, clk, a.Logger)

	scanner := scan.New(a.Config.Modules.ImportPrefix)
	a.Validator = app.NewValidator(a.Catalog, scanner, memory.NewCache(clk), collector, a.Logger)

	a.Registries = &app.RegistrySet{
		Settings:    app.NewSettingsRegistry(sqlite.NewSettingStore(a.DB), a.DB, collector, a.Logger),
		Permissions: app.NewPermissionsRegistry(sqlite.NewPermissionStore(a.DB), a.DB, collector, a.Logger),
		Menus:       app.NewMenuRegistry(sqlite.NewMenuStore(a.DB), a.DB, collector, a.Logger),
		Categories:  app.NewCategoriesRegistry(sqlite.NewCategoryStore(a.DB), a.DB, collector, a.Logger),
		Roles:       app.NewRolesRegistry(sqlite.NewRoleStore(a.DB), a.DB, collector, a.Logger),
		Middleware:  app.NewMiddlewareRegistry(),
		Widgets:     app.NewWidgetRegistry(),
	}

	a.Lifecycle = app.NewLifecycle(
		a.Catalog,
		a.Status,
		a.Validator,
		a.Activator,
		sqlite.NewModuleMigrator(a.DB),
		a.Registries,
		manifest.NewRouteWriter(a.Config.Modules.RouteManifest),
		clk,
		idgen.UUID{},
		collector,
		a.Logger,
	)

	a.Discovery = app.NewDiscovery(
		a.Config.Modules.Dir,
		a.loader,
		a.Catalog,
		a.Status,
		a.Lifecycle,
		a.Config.Modules.SeedOnInstall,
		collector,
		a.Logger,
	)
}

func (a *App) initHTTPServer() {
	handler := web.NewHandler(web.Deps{
		Catalog:    a.Catalog,
		Status:     a.Status,
		Lifecycle:  a.Lifecycle,
		Discovery:  a.Discovery,
		Activator:  a.Activator,
		Registries: a.Registries,
		Settings:   sqlite.NewSettingStore(a.DB),
		Logger:     a.Logger,
	})

	a.HTTPServer = &http.Server{
		Addr: fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler: handler.Router(web.RouterOptions{
			MetricsRegistry: a.MetricsRegistry,
			MetricsPath:     a.Config.Metrics.Path,
		}),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Discover refreshes the catalog from disk and registers every module's
// manifest declarations into the registries.
func (a *App) Discover(ctx context.Context) error {
	descriptors, err := a.Discovery.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("discover modules: %w", err)
	}
	return a.registerDeclarations(descriptors)
}

// Boot runs discovery, registers manifest declarations, installs protected
// modules and seeds the registries of enabled modules.
func (a *App) Boot(ctx context.Context) error {
	if err := a.Discover(ctx); err != nil {
		return err
	}

	if a.Config.Modules.AutoInstallProtected {
		if err := a.Discovery.InstallProtected(ctx); err != nil {
			return fmt.Errorf("install protected modules: %w", err)
		}
	}

	// Re-sync registry rows of modules already enabled from a previous run.
	for _, desc := range a.Catalog.All() {
		if !a.Status.IsEnabled(ctx, desc.Name) {
			continue
		}
		if err := a.Registries.SeedModule(ctx, desc.Name, false); err != nil {
			a.Logger.Error().Err(err).Str("module", desc.Name).Msg("registry sync failed")
		}
	}

	if orphans, err := a.Discovery.Orphans(ctx); err == nil {
		for _, st := range orphans {
			a.Logger.Warn().Str("module", st.Name).Msg("status row has no module on disk")
		}
	}
	return nil
}

// registerDeclarations feeds each module's manifest declarations into the
// registries. Duplicate declarations across modules are a boot error.
func (a *App) registerDeclarations(descriptors []module.Descriptor) error {
	a.Registries.Settings.Reset()
	a.Registries.Permissions.Reset()
	a.Registries.Menus.Reset()
	a.Registries.Categories.Reset()
	a.Registries.Roles.Reset()
	a.Registries.Middleware.Reset()
	a.Registries.Widgets.Reset()

	for _, desc := range descriptors {
		decl, err := a.loader.LoadDeclarations(desc)
		if err != nil {
			return fmt.Errorf("module %q declarations: %w", desc.Name, err)
		}
		if err := a.Registries.Settings.Register(decl.Settings...); err != nil {
			return fmt.Errorf("module %q: %w", desc.Name, err)
		}
		if err := a.Registries.Permissions.Register(decl.Permissions...); err != nil {
			return fmt.Errorf("module %q: %w", desc.Name, err)
		}
		if err := a.Registries.Menus.Register(decl.Menu...); err != nil {
			return fmt.Errorf("module %q: %w", desc.Name, err)
		}
		if err := a.Registries.Categories.Register(decl.Categories...); err != nil {
			return fmt.Errorf("module %q: %w", desc.Name, err)
		}
		if err := a.Registries.Roles.Register(decl.Roles...); err != nil {
			return fmt.Errorf("module %q: %w", desc.Name, err)
		}
		for _, mw := range decl.Middleware {
			if err := a.Registries.Middleware.Register(desc.Name, mw); err != nil {
				return fmt.Errorf("module %q: %w", desc.Name, err)
			}
		}
		if err := a.Registries.Widgets.Register(decl.Widgets...); err != nil {
			return fmt.Errorf("module %q: %w", desc.Name, err)
		}
	}
	return nil
}

// Run boots the application, starts the HTTP server and blocks until
// shutdown.
func (a *App) Run() error {
	ctx := context.Background()

	if err := a.Boot(ctx); err != nil {
		return err
	}

	if a.Config.Modules.WatchManifests {
		w, err := newModuleWatcher(a.Config.Modules.Dir, a.Logger, func() {
			if err := a.Boot(context.Background()); err != nil {
				a.Logger.Error().Err(err).Msg("rediscovery failed")
			}
		})
		if err != nil {
			a.Logger.Warn().Err(err).Msg("module watch unavailable")
		} else {
			a.watch = w
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.watch != nil {
		a.watch.Stop()
	}
	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	setLogLevel(cfg.Logging.Level)

	if cfg.Logging.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setLogLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
