package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"go.uber.org/zap"
)

// ChaosService — то, что хендлеру нужно от сервиса управления хаосом.
type ChaosService interface {
	Status() domain.ChaosStatus
	Apply(ctx context.Context, cfg domain.ChaosConfig) (domain.ChaosStatus, error)
	Clear(ctx context.Context) domain.ChaosStatus
	ApplyPreset(ctx context.Context, name string) (domain.ChaosStatus, error)
	Presets() []domain.ChaosPreset
}

type ChaosHandler struct {
	service ChaosService
	logger  *zap.Logger
}

func NewChaosHandler(s ChaosService, logger *zap.Logger) *ChaosHandler {
	return &ChaosHandler{service: s, logger: logger.Named("chaos-api")}
}

type chaosResponse struct {
	Message string `json:"message,omitempty"`
	domain.ChaosStatus
}

// Get — текущий снимок конфигурации.
// GET /admin/chaos
func (h *ChaosHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

// Apply — POST /admin/chaos. Тело целиком заменяет конфигурацию,
// опущенные поля становятся нулевыми.
func (h *ChaosHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ChaosConfig
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_configuration", "invalid request body: "+err.Error())
		return
	}

	st, err := h.service.Apply(r.Context(), cfg)
	if err != nil {
		h.respondApplyError(w, err)
		return
	}

	h.logger.Info("chaos configuration applied",
		zap.Bool("latency", st.LatencyEnabled),
		zap.Int("latency_ms", st.LatencyMs),
		zap.Float64("crash_rate", st.CrashRate),
		zap.Float64("partial_failure_rate", st.PartialFailureRate))
	writeJSON(w, http.StatusOK, chaosResponse{Message: "chaos configuration applied", ChaosStatus: st})
}

// Clear — DELETE /admin/chaos. Всегда 200.
func (h *ChaosHandler) Clear(w http.ResponseWriter, r *http.Request) {
	st := h.service.Clear(r.Context())
	h.logger.Info("chaos configuration cleared")
	writeJSON(w, http.StatusOK, chaosResponse{Message: "chaos configuration cleared", ChaosStatus: st})
}

// ListPresets — GET /admin/chaos/presets
func (h *ChaosHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Presets())
}

// ApplyPreset — POST /admin/chaos/presets/{name}
func (h *ChaosHandler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, err := h.service.ApplyPreset(r.Context(), name)
	if err != nil {
		h.respondApplyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chaosResponse{Message: "chaos preset " + name + " applied", ChaosStatus: st})
}

func (h *ChaosHandler) respondApplyError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidConfiguration) {
		writeError(w, http.StatusBadRequest, "invalid_configuration", err.Error())
		return
	}
	h.logger.Error("failed to apply chaos configuration", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
