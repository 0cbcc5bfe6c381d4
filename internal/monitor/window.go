// Package monitor реализует скользящее окно времени ответа и машину
// состояний алертов поверх него. Таймеров внутри нет: окно двигается
// только вставками извне.
package monitor

import (
	"sync"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
)

const DefaultWindow = 30 * time.Second

// Thresholds — границы уровней: avg <= Warning — NORMAL,
// Warning < avg <= Critical — WARNING, avg > Critical — CRITICAL.
type Thresholds struct {
	WarningMs  float64
	CriticalMs float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{WarningMs: 500, CriticalMs: 1000}
}

// Classify переводит среднее в уровень.
func (t Thresholds) Classify(avgMs float64) domain.AlertLevel {
	switch {
	case avgMs > t.CriticalMs:
		return domain.LevelCritical
	case avgMs > t.WarningMs:
		return domain.LevelWarning
	default:
		return domain.LevelNormal
	}
}

// Window — владелец состояния скользящего окна одного сервиса.
// Вставки сериализуются мьютексом; наружу отдаются только копии.
type Window struct {
	mu          sync.Mutex
	target      string
	window      time.Duration
	thresholds  Thresholds
	samples     []domain.ResponseTimeSample
	average     float64
	level       domain.AlertLevel
	alertActive bool
	updatedAt   time.Time

	now     func() time.Time
	onEdge  func(domain.Transition)
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

type Option func(*Window)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

// WithEdgeHandler — колбэк на вход/выход из CRITICAL (баннер алерта).
// Вызывается вне блокировки.
func WithEdgeHandler(fn func(domain.Transition)) Option {
	return func(w *Window) { w.onEdge = fn }
}

func NewWindow(target string, window time.Duration, thresholds Thresholds, logger *zap.Logger, metrics *telemetry.Metrics, opts ...Option) *Window {
	if window <= 0 {
		window = DefaultWindow
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	w := &Window{
		target:     target,
		window:     window,
		thresholds: thresholds,
		level:      domain.LevelNormal,
		now:        time.Now,
		logger:     logger.With(zap.String("mod", "window"), zap.String("target", target)),
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Insert добавляет замер, выбрасывает устаревшие, пересчитывает среднее
// и уровень. Возвращает переход с граничным событием, если оно было.
func (w *Window) Insert(sample domain.ResponseTimeSample) domain.Transition {
	if sample.DurationMs < 0 {
		sample.DurationMs = 0
	}

	w.mu.Lock()
	now := w.now()
	prevLevel := w.level
	prevAlert := w.alertActive

	w.samples = retain(append(w.samples, sample), now.Add(-w.window))
	w.average = mean(w.samples)
	// Пустое окно никогда не поднимает алерт
	w.level = w.thresholds.Classify(w.average)
	w.alertActive = w.level == domain.LevelCritical
	w.updatedAt = now

	tr := domain.Transition{
		Snapshot: w.snapshotLocked(w.samples),
		Previous: prevLevel,
	}
	switch {
	case w.alertActive && !prevAlert:
		tr.Edge = domain.EdgeCriticalEntered
	case !w.alertActive && prevAlert:
		tr.Edge = domain.EdgeCriticalCleared
	}
	w.mu.Unlock()

	w.metrics.WindowAverage.WithLabelValues(w.target).Set(tr.Snapshot.AverageMs)
	w.metrics.AlertLevel.WithLabelValues(w.target).Set(tr.Snapshot.Level.Gauge())

	if tr.Edge != domain.EdgeNone {
		w.metrics.CriticalTransitions.WithLabelValues(w.target, string(tr.Edge)).Inc()
		if w.onEdge != nil {
			w.onEdge(tr)
		}
	}
	if tr.Previous != tr.Snapshot.Level {
		w.logger.Info("alert level changed",
			zap.String("from", string(tr.Previous)),
			zap.String("to", string(tr.Snapshot.Level)),
			zap.Float64("average_ms", tr.Snapshot.AverageMs))
	}
	return tr
}

// Snapshot возвращает текущее состояние. Устаревшие замеры в снимок не
// попадают, среднее считается по оставшимся; уровень и флаг алерта —
// результат последней вставки.
func (w *Window) Snapshot() domain.WindowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	live := retain(append([]domain.ResponseTimeSample(nil), w.samples...), w.now().Add(-w.window))
	snap := w.snapshotLocked(live)
	snap.AverageMs = mean(live)
	return snap
}

func (w *Window) snapshotLocked(samples []domain.ResponseTimeSample) domain.WindowSnapshot {
	cp := make([]domain.ResponseTimeSample, len(samples))
	copy(cp, samples)
	return domain.WindowSnapshot{
		Samples:     cp,
		Window:      w.window,
		WindowMs:    w.window.Milliseconds(),
		AverageMs:   w.average,
		Level:       w.level,
		AlertActive: w.alertActive,
		UpdatedAt:   w.updatedAt,
	}
}

// retain фильтрует на месте: остаются замеры с timestamp >= cutoff.
func retain(samples []domain.ResponseTimeSample, cutoff time.Time) []domain.ResponseTimeSample {
	kept := samples[:0]
	for _, s := range samples {
		if !s.Timestamp.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	return kept
}

func mean(samples []domain.ResponseTimeSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum int64
	for _, s := range samples {
		sum += s.DurationMs
	}
	return float64(sum) / float64(len(samples))
}
