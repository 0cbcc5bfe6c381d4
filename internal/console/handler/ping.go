package handler

import (
	"net/http"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/chaos"
)

type pingResponse struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// PingHandler — минимальный защищенный эндпоинт. На нем видно действие гейта.
type PingHandler struct {
	service string
	now     func() time.Time
}

func NewPingHandler(service string) *PingHandler {
	return &PingHandler{service: service, now: time.Now}
}

// Ping — GET /api/ping. Деградированный ответ теряет часть полей.
func (h *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chaos.IsDegraded(r.Context()) {
		writeJSON(w, http.StatusOK, pingResponse{Service: h.service, Degraded: true})
		return
	}
	writeJSON(w, http.StatusOK, pingResponse{Service: h.service, Status: "ok", Timestamp: h.now()})
}
