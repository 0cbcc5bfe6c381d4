package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка HTTP-запроса
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Chaos: сколько запросов получили тот или иной эффект
	ChaosInjections *prometheus.CounterVec

	// Chaos: активна ли сейчас хоть одна инъекция (0/1)
	ChaosActive prometheus.Gauge

	// Health: длительность проб зависимостей
	ProbeDuration *prometheus.HistogramVec

	// Monitor: среднее за окно и текущий уровень (0=NORMAL, 1=WARNING, 2=CRITICAL)
	WindowAverage *prometheus.GaugeVec
	AlertLevel    *prometheus.GaugeVec

	// Monitor: граничные события входа/выхода из CRITICAL
	CriticalTransitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of processed requests.",
		}, []string{"route", "method"}),

		ChaosInjections: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "chaos_injections_total",
			Help: "Total number of requests affected by chaos injection.",
		}, []string{"effect"}), // crash, degraded, latency

		ChaosActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "chaos_active",
			Help: "Whether any chaos effect is currently configured (0/1).",
		}),

		ProbeDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "health_probe_duration_seconds",
			Help:    "Histogram of dependency probe durations.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"probe", "healthy"}),

		WindowAverage: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_window_average_ms",
			Help: "Average response time over the rolling window.",
		}, []string{"target"}),

		AlertLevel: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_alert_level",
			Help: "Current alert level (0=normal, 1=warning, 2=critical).",
		}, []string{"target"}),

		CriticalTransitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_critical_transitions_total",
			Help: "Number of CRITICAL entry/exit edges.",
		}, []string{"target", "direction"}),
	}
}
