package chaos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"go.uber.org/zap"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const degradedKey ctxKey = "chaos_degraded"

// DegradedHeader выставляется на ответах, которые гейт пометил как деградированные.
const DegradedHeader = "X-Chaos-Degraded"

// WithDegraded помечает контекст запроса как деградированный.
func WithDegraded(ctx context.Context) context.Context {
	return context.WithValue(ctx, degradedKey, true)
}

// IsDegraded — хендлер спрашивает, нужно ли отдать неполный ответ.
func IsDegraded(ctx context.Context) bool {
	v, _ := ctx.Value(degradedKey).(bool)
	return v
}

// Middleware встраивает гейт в HTTP-пайплайн защищаемого сервиса.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := g.Inject(r.Context())
		if err != nil {
			if errors.Is(err, domain.ErrSimulatedCrash) {
				g.logger.Info("request failed by chaos injection",
					zap.String("path", r.URL.Path),
					zap.Duration("delay", d.Delay))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "simulated_crash",
					"message": err.Error(),
				})
				return
			}
			// Клиент ушел во время задержки — отвечать некому
			g.logger.Debug("request cancelled during injected latency", zap.Error(err))
			return
		}

		if d.Effect == domain.EffectDegraded {
			w.Header().Set(DegradedHeader, "true")
			r = r.WithContext(WithDegraded(r.Context()))
		}

		next.ServeHTTP(w, r)
	})
}
