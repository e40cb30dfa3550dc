package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/fazaimron27/tooldock/app"
	"github.com/fazaimron27/tooldock/domain/module"
	"github.com/fazaimron27/tooldock/domain/permission"
	"github.com/fazaimron27/tooldock/ports"
	"github.com/go-chi/chi/v5"
)

// moduleView is the JSON shape of a module and its lifecycle state.
type moduleView struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Requires  []string `json:"requires,omitempty"`
	Protected bool     `json:"protected"`
	State     string   `json:"state"`
	Installed bool     `json:"installed"`
	Active    bool     `json:"active"`
}

func (h *Handler) moduleView(r *http.Request, desc module.Descriptor) moduleView {
	view := moduleView{
		Name:      desc.Name,
		Version:   desc.Version,
		Requires:  desc.Requires,
		Protected: desc.Protected,
		State:     module.StateUninstalled.String(),
	}
	if st, err := h.status.Get(r.Context(), desc.Name); err == nil {
		view.Installed = st.Installed
		view.Active = st.Active
		view.State = st.State().String()
		if st.Installed {
			view.Version = st.Version
		}
	}
	return view
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListModules returns every discovered module with its state.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	descriptors := h.catalog.All()
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })

	views := make([]moduleView, 0, len(descriptors))
	for _, desc := range descriptors {
		views = append(views, h.moduleView(r, desc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": views})
}

// GetModule returns a single module.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	desc, ok := h.catalog.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, &module.NotFoundError{Module: name})
		return
	}
	writeJSON(w, http.StatusOK, h.moduleView(r, desc))
}

// InstallModule installs a module. Query params: seed=1 runs seeders,
// skip_scan=1 bypasses the source scan.
func (h *Handler) InstallModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	opts := app.InstallOptions{
		WithSeed: r.URL.Query().Get("seed") == "1",
		SkipScan: r.URL.Query().Get("skip_scan") == "1",
	}
	h.lifecycleResponse(w, r, name, h.lifecycle.Install(r.Context(), name, opts))
}

// EnableModule activates an installed module.
func (h *Handler) EnableModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.lifecycleResponse(w, r, name, h.lifecycle.Enable(r.Context(), name))
}

// DisableModule deactivates a module.
func (h *Handler) DisableModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.lifecycleResponse(w, r, name, h.lifecycle.Disable(r.Context(), name))
}

// UninstallModule uninstalls a module.
func (h *Handler) UninstallModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.lifecycleResponse(w, r, name, h.lifecycle.Uninstall(r.Context(), name))
}

// Discover re-scans the modules directory.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	found, err := h.discovery.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"discovered": len(found)})
}

// MenuTree returns the resolved menu tree of enabled modules.
func (h *Handler) MenuTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.registries.Menus.Tree(r.Context(), h.activator.Enabled)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"menu": tree})
}

// Permissions returns permissions grouped for display.
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	all, err := h.registries.Permissions.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var visible []permission.Permission
	for _, p := range all {
		if h.activator.Enabled(p.Module) {
			visible = append(visible, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": permission.GroupAll(visible)})
}

// Widgets returns dashboard widgets of enabled modules.
func (h *Handler) Widgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"widgets": h.registries.Widgets.ForEnabled(h.activator.Enabled),
	})
}

// Settings returns settings of enabled modules, keyed by setting key.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	all, err := h.settings.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	values := make(map[string]string)
	for _, s := range all {
		if h.activator.Enabled(s.Module) {
			values[s.Key] = s.Value
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": values})
}

// RouteNames returns the route-name map of enabled modules.
func (h *Handler) RouteNames(w http.ResponseWriter, r *http.Request) {
	routes, err := h.registries.Menus.RouteNames(r.Context(), h.activator.Enabled)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

// lifecycleResponse maps lifecycle errors to HTTP statuses.
func (h *Handler) lifecycleResponse(w http.ResponseWriter, r *http.Request, name string, err error) {
	if err == nil {
		desc, ok := h.catalog.Get(name)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		writeJSON(w, http.StatusOK, h.moduleView(r, desc))
		return
	}

	var (
		notFound  *module.NotFoundError
		missing   *module.MissingDependencyError
		protected *module.ProtectedModuleError
		reverse   *module.ReverseDependencyError
	)
	switch {
	case errors.As(err, &notFound) || errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &missing), errors.As(err, &protected), errors.As(err, &reverse):
		writeError(w, http.StatusConflict, err)
	default:
		h.logger.Error().Err(err).Str("module", name).Msg("lifecycle request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
