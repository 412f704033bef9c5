package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/geoduel/internal/api/response"
)

// CatalogHandler serves catalog metadata and server health
type CatalogHandler struct {
	engine Engine
	loop   Runner
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(engine Engine, loop Runner) *CatalogHandler {
	return &CatalogHandler{engine: engine, loop: loop}
}

// Regions handles GET /api/v1/regions
func (h *CatalogHandler) Regions(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.RegionsFromModel(h.engine.Regions()))
}

// Health handles GET /api/v1/health
func (h *CatalogHandler) Health(w http.ResponseWriter, r *http.Request) {
	var resp response.Health
	if err := h.loop.Do(r.Context(), func(context.Context) {
		resp.Connections, resp.Rooms = h.engine.Stats()
	}); err != nil {
		WriteError(w, err)
		return
	}
	resp.Status = "ok"
	response.JSON(w, http.StatusOK, resp)
}
