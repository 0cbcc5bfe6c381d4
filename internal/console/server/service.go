package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/resilience-control-plane/internal/chaos"
	"github.com/xela07ax/resilience-control-plane/internal/console/handler"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ServiceServer — HTTP-поверхность защищаемого сервиса.
type ServiceServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	metrics *telemetry.Metrics

	gate     *chaos.Gate
	limiter  *rate.Limiter
	gatherer prometheus.Gatherer

	chaosHandler  *handler.ChaosHandler  // /admin/chaos
	healthHandler *handler.HealthHandler // /health, /health/deep
	pingHandler   *handler.PingHandler   // /api/ping
}

// NewServiceServer собирает роутер сервиса со всеми зависимостями.
// gatherer может быть nil, тогда /metrics не публикуется.
func NewServiceServer(
	cfg *infra.Config,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
	gatherer prometheus.Gatherer,
	gate *chaos.Gate,
	chaosH *handler.ChaosHandler,
	healthH *handler.HealthHandler,
	pingH *handler.PingHandler,
) *ServiceServer {
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	s := &ServiceServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("service-api"),
		metrics:       metrics,
		gate:          gate,
		limiter:       rate.NewLimiter(rate.Limit(cfg.Chaos.AdminRPS), cfg.Chaos.AdminBurst),
		gatherer:      gatherer,
		chaosHandler:  chaosH,
		healthHandler: healthH,
		pingHandler:   pingH,
	}

	s.routes()
	return s
}

func (s *ServiceServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(AccessLog(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	// --- 2. Наблюдаемость: /health не проходит через гейт ---
	r.Get("/health", s.healthHandler.Health)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// --- 3. Управление хаосом ---
	r.Route("/admin/chaos", s.chaosRoutes)
	r.Route("/api/admin/chaos", s.chaosRoutes)

	// --- 4. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (через гейт) ---
	r.Group(func(r chi.Router) {
		r.Use(s.gate.Middleware)

		// Время ответа deep-проверки и есть то, что видит наблюдатель
		r.Get("/health/deep", s.healthHandler.Deep)
		r.Get("/api/ping", s.pingHandler.Ping)
	})
}

func (s *ServiceServer) chaosRoutes(r chi.Router) {
	r.Get("/", s.chaosHandler.Get)
	r.Get("/presets", s.chaosHandler.ListPresets)

	r.Group(func(r chi.Router) {
		r.Use(Throttle(s.limiter))
		r.Post("/", s.chaosHandler.Apply)
		r.Delete("/", s.chaosHandler.Clear)
		r.Post("/presets/{name}", s.chaosHandler.ApplyPreset)
	})
}

// ServeHTTP позволяет использовать ServiceServer как стандартный http.Handler
func (s *ServiceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
