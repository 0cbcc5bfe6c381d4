package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/resilience-control-plane/internal/console/handler"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
)

// ObserverServer — API дашборда наблюдателя.
type ObserverServer struct {
	router   *chi.Mux
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer

	dashHandler *handler.DashboardHandler
}

func NewObserverServer(logger *zap.Logger, metrics *telemetry.Metrics, gatherer prometheus.Gatherer, dashH *handler.DashboardHandler) *ObserverServer {
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	s := &ObserverServer{
		router:      chi.NewRouter(),
		logger:      logger.Named("observer-api"),
		metrics:     metrics,
		gatherer:    gatherer,
		dashHandler: dashH,
	}
	s.routes()
	return s
}

func (s *ObserverServer) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(AccessLog(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/dashboard", s.dashHandler.Get)
	r.Get("/dashboard/{name}", s.dashHandler.Service)
}

func (s *ObserverServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
