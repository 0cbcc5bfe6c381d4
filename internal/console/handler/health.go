package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
)

// HealthChecker — агрегатор проверок зависимостей.
type HealthChecker interface {
	Check(ctx context.Context) domain.HealthDocument
	DeepCheck(ctx context.Context) domain.HealthDocument
}

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(c HealthChecker) *HealthHandler {
	return &HealthHandler{checker: c}
}

// Health — GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.checker.Check(r.Context()))
}

// Deep — GET /health/deep
func (h *HealthHandler) Deep(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.checker.DeepCheck(r.Context()))
}

// 503 для нездорового сервиса: балансировщики смотрят на код, наблюдатель на тело
func (h *HealthHandler) respond(w http.ResponseWriter, doc domain.HealthDocument) {
	status := http.StatusOK
	if !doc.Healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, doc)
}
