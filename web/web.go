// Package web exposes the read-mostly HTTP surface of the module host: page
// props (statuses, menu tree, permissions, widgets) for a frontend, plus
// lifecycle actions for an admin client.
package web

import (
	"net/http"

	"github.com/fazaimron27/tooldock/app"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handler serves the module host API.
type Handler struct {
	catalog    *app.Catalog
	status     *app.StatusService
	lifecycle  *app.Lifecycle
	discovery  *app.Discovery
	activator  ports.Activator
	registries *app.RegistrySet
	settings   ports.SettingStore
	logger     zerolog.Logger
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Catalog    *app.Catalog
	Status     *app.StatusService
	Lifecycle  *app.Lifecycle
	Discovery  *app.Discovery
	Activator  ports.Activator
	Registries *app.RegistrySet
	Settings   ports.SettingStore
	Logger     zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		catalog:    deps.Catalog,
		status:     deps.Status,
		lifecycle:  deps.Lifecycle,
		discovery:  deps.Discovery,
		activator:  deps.Activator,
		registries: deps.Registries,
		settings:   deps.Settings,
		logger:     deps.Logger,
	}
}

// RouterOptions tunes optional mounts.
type RouterOptions struct {
	MetricsRegistry *prometheus.Registry
	MetricsPath     string
}

// Router builds the chi router.
func (h *Handler) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", h.ListModules)
		r.Get("/modules/{name}", h.GetModule)
		r.Post("/modules/{name}/install", h.InstallModule)
		r.Post("/modules/{name}/enable", h.EnableModule)
		r.Post("/modules/{name}/disable", h.DisableModule)
		r.Post("/modules/{name}/uninstall", h.UninstallModule)
		r.Post("/discover", h.Discover)

		r.Get("/props/menu", h.MenuTree)
		r.Get("/props/permissions", h.Permissions)
		r.Get("/props/widgets", h.Widgets)
		r.Get("/props/settings", h.Settings)
		r.Get("/props/routes", h.RouteNames)
	})

	if opts.MetricsRegistry != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(opts.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	return r
}
