// Package observer опрашивает health-эндпоинты сервисов с фиксированным
// интервалом и кормит время ответа /health/deep в скользящее окно.
package observer

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/health"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"github.com/xela07ax/resilience-control-plane/internal/monitor"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status — последний результат опроса одного сервиса.
type Status struct {
	Document  domain.HealthDocument
	RTT       time.Duration
	CheckedAt time.Time
}

type Observer struct {
	targets      []infra.TargetConfig
	interval     time.Duration
	fetchTimeout time.Duration
	client       *http.Client
	windows      map[string]*monitor.Window
	now          func() time.Time

	mu     sync.RWMutex
	latest map[string]Status

	wg     sync.WaitGroup
	logger *zap.Logger
}

type Option func(*Observer)

// WithHTTPClient подменяет HTTP-клиент.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Observer) { o.client = c }
}

// WithClock подменяет часы (и для окон, и для меток времени замеров).
func WithClock(now func() time.Time) Option {
	return func(o *Observer) { o.now = now }
}

func New(cfg *infra.Config, logger *zap.Logger, metrics *telemetry.Metrics, opts ...Option) *Observer {
	o := &Observer{
		targets:      cfg.Observer.Targets,
		interval:     cfg.Observer.Interval,
		fetchTimeout: cfg.Health.FetchTimeout,
		client:       &http.Client{},
		windows:      make(map[string]*monitor.Window),
		now:          time.Now,
		latest:       make(map[string]Status),
		logger:       logger.Named("observer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.interval <= 0 {
		o.interval = 2 * time.Second
	}
	if o.fetchTimeout <= 0 {
		o.fetchTimeout = 10 * time.Second
	}

	thresholds := monitor.Thresholds{WarningMs: cfg.Monitor.WarningMs, CriticalMs: cfg.Monitor.CriticalMs}
	if thresholds.CriticalMs <= 0 {
		thresholds = monitor.DefaultThresholds()
	}
	for _, t := range o.targets {
		if !t.Deep {
			continue
		}
		o.windows[t.Name] = monitor.NewWindow(t.Name, cfg.Monitor.Window, thresholds, o.logger, metrics,
			monitor.WithClock(o.now),
			monitor.WithEdgeHandler(o.alertBanner(t.Name)),
		)
	}
	return o
}

// Run опрашивает сервисы каждые interval до отмены ctx. Первый опрос — сразу.
// Такты не ждут друг друга: медленный сервис не сдвигает расписание,
// а каждый опрос ограничен fetchTimeout.
func (o *Observer) Run(ctx context.Context) {
	o.logger.Info("observer started",
		zap.Int("targets", len(o.targets)),
		zap.Duration("interval", o.interval))

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.spawnTick(ctx)
	for {
		select {
		case <-ctx.Done():
			o.wg.Wait()
			o.logger.Info("observer stopped")
			return
		case <-ticker.C:
			o.spawnTick(ctx)
		}
	}
}

func (o *Observer) spawnTick(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Tick(ctx)
	}()
}

// Tick — один такт: параллельный опрос всех сервисов. Сбой или медленный
// ответ одного не задерживает остальных.
func (o *Observer) Tick(ctx context.Context) {
	var g errgroup.Group
	for _, t := range o.targets {
		g.Go(func() error {
			o.poll(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Observer) poll(ctx context.Context, t infra.TargetConfig) {
	url := endpoint(t)
	res := health.FetchDocument(ctx, o.client, t.Name, url, o.fetchTimeout)
	checkedAt := o.now()

	if !res.Document.Healthy {
		o.logger.Warn("service unhealthy",
			zap.String("target", t.Name),
			zap.String("error", res.Document.Error),
			zap.Int("status_code", res.StatusCode))
	}

	if w, ok := o.windows[t.Name]; ok {
		w.Insert(domain.ResponseTimeSample{Timestamp: checkedAt, DurationMs: res.RTT.Milliseconds()})
	}

	o.mu.Lock()
	// Более старый опрос не должен затирать более свежий
	if prev, ok := o.latest[t.Name]; !ok || !checkedAt.Before(prev.CheckedAt) {
		o.latest[t.Name] = Status{Document: res.Document, RTT: res.RTT, CheckedAt: checkedAt}
	}
	o.mu.Unlock()
}

func (o *Observer) alertBanner(target string) func(domain.Transition) {
	return func(tr domain.Transition) {
		switch tr.Edge {
		case domain.EdgeCriticalEntered:
			o.logger.Error("CRITICAL: response time above threshold",
				zap.String("target", target),
				zap.Float64("average_ms", tr.Snapshot.AverageMs),
				zap.Int("samples", len(tr.Snapshot.Samples)))
		case domain.EdgeCriticalCleared:
			o.logger.Info("response time recovered",
				zap.String("target", target),
				zap.Float64("average_ms", tr.Snapshot.AverageMs))
		}
	}
}

// Window возвращает окно сервиса (только для deep-целей).
func (o *Observer) Window(target string) (*monitor.Window, bool) {
	w, ok := o.windows[target]
	return w, ok
}

func endpoint(t infra.TargetConfig) string {
	base := strings.TrimRight(t.URL, "/")
	if t.Deep {
		return base + "/health/deep"
	}
	return base + "/health"
}
