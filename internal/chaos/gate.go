package chaos

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
)

// Snapshotter — все, что гейту нужно от хранилища.
type Snapshotter interface {
	Current() domain.ChaosConfig
}

// Decision — решение гейта по одному запросу. Полностью определяется
// снимком конфигурации, взятым на входе.
type Decision struct {
	Config domain.ChaosConfig
	Effect domain.ChaosEffect
	Delay  time.Duration
}

// Gate решает, что сделать с конкретным запросом: уронить, деградировать,
// задержать. Сам гейт состояния не хранит и не блокирует других.
type Gate struct {
	store   Snapshotter
	draw    func() float64
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

type GateOption func(*Gate)

// WithRandom подменяет источник равномерных чисел из [0,1).
func WithRandom(draw func() float64) GateOption {
	return func(g *Gate) { g.draw = draw }
}

// WithSleep подменяет ожидание (в тестах — без реального сна).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) GateOption {
	return func(g *Gate) { g.sleep = sleep }
}

func NewGate(store Snapshotter, logger *zap.Logger, metrics *telemetry.Metrics, opts ...GateOption) *Gate {
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	g := &Gate{
		store:   store,
		draw:    rand.Float64,
		sleep:   sleepContext,
		logger:  logger.With(zap.String("mod", "chaos-gate")),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide берет снимок один раз и делает независимые броски.
// Порядок: сначала crash, затем (только если crash не выпал) partial failure.
// Задержка ортогональна обоим.
func (g *Gate) Decide() Decision {
	cfg := g.store.Current()
	d := Decision{Config: cfg, Effect: domain.EffectNone}

	if cfg.CrashRate > 0 && g.draw() < cfg.CrashRate {
		d.Effect = domain.EffectCrash
	} else if cfg.PartialFailureRate > 0 && g.draw() < cfg.PartialFailureRate {
		d.Effect = domain.EffectDegraded
	}

	d.Delay = cfg.Latency()
	return d
}

// Inject принимает решение и выдерживает задержку. Возвращает
// ErrSimulatedCrash, если запрос должен упасть, и ctx.Err(), если клиент
// ушел во время задержки.
func (g *Gate) Inject(ctx context.Context) (Decision, error) {
	d := g.Decide()

	if d.Delay > 0 {
		g.metrics.ChaosInjections.WithLabelValues("latency").Inc()
		if err := g.sleep(ctx, d.Delay); err != nil {
			return d, err
		}
	}

	switch d.Effect {
	case domain.EffectCrash:
		g.metrics.ChaosInjections.WithLabelValues(string(domain.EffectCrash)).Inc()
		g.logger.Debug("injected crash", zap.Float64("crash_rate", d.Config.CrashRate))
		return d, domain.ErrSimulatedCrash
	case domain.EffectDegraded:
		g.metrics.ChaosInjections.WithLabelValues(string(domain.EffectDegraded)).Inc()
		g.logger.Debug("injected partial failure", zap.Float64("partial_failure_rate", d.Config.PartialFailureRate))
	}
	return d, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
