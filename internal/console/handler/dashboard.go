package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/resilience-control-plane/internal/observer"
)

// DashboardSource описываем, что нам нужно от наблюдателя
type DashboardSource interface {
	Dashboard() observer.Dashboard
}

type DashboardHandler struct {
	source DashboardSource
}

func NewDashboardHandler(s DashboardSource) *DashboardHandler {
	return &DashboardHandler{source: s}
}

// Get — GET /dashboard. Отвечает 200 даже если все сервисы лежат.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Dashboard())
}

// Service — GET /dashboard/{name}
func (h *DashboardHandler) Service(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, s := range h.source.Dashboard().Services {
		if s.Name == name {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "unknown service "+name)
}
