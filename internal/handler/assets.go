package handler

import (
	"net/http"

	"wayfarer/internal/assets"
	"wayfarer/internal/httputil"
)

// AssetsHandler serves the static world/monster catalog.
type AssetsHandler struct {
	catalog *assets.Catalog
}

// NewAssetsHandler creates the handler.
func NewAssetsHandler(catalog *assets.Catalog) *AssetsHandler {
	return &AssetsHandler{catalog: catalog}
}

// Worlds handles GET /worlds
func (h *AssetsHandler) Worlds(w http.ResponseWriter, r *http.Request) {
	worlds := h.catalog.Worlds()
	out := make([]map[string]any, 0, len(worlds))
	for _, world := range worlds {
		out = append(out, map[string]any{
			"name":        world.Name,
			"description": world.Description,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"worlds": out})
}

// Hooks handles GET /worlds/{name}/hooks
func (h *AssetsHandler) Hooks(w http.ResponseWriter, r *http.Request) {
	name, ok := PathParam(w, r, "name", "world name")
	if !ok {
		return
	}
	world := h.catalog.World(name)
	if world == nil {
		httputil.RespondErrorMessage(w, "unknown world "+name)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"hooks": world.Hooks})
}

// Monster handles GET /monsters/{slug}
func (h *AssetsHandler) Monster(w http.ResponseWriter, r *http.Request) {
	slug, ok := PathParam(w, r, "slug", "monster slug")
	if !ok {
		return
	}
	monster := h.catalog.Monster(slug)
	if monster == nil {
		httputil.RespondErrorMessage(w, "unknown monster "+slug)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, monster)
}
