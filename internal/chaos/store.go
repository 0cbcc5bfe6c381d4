package chaos

import (
	"sync"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
)

// Store — единственный владелец текущей конфигурации хаоса в процессе.
// Конфигурация хранится значением и заменяется целиком под мьютексом,
// поэтому читатель видит либо старое, либо новое значение, но не смесь.
//
// Каждая запись получает ревизию (unix-наносекунды, строго возрастающие
// внутри процесса). По ревизии синхронизация между инстансами отбрасывает
// устаревшие сообщения.
type Store struct {
	mu       sync.RWMutex
	cfg      domain.ChaosConfig
	revision int64
	now      func() time.Time
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

func NewStore(logger *zap.Logger, metrics *telemetry.Metrics) *Store {
	if metrics == nil {
		metrics = telemetry.NewMetrics(nil)
	}
	return &Store{
		cfg:     domain.DefaultChaosConfig(),
		now:     time.Now,
		logger:  logger.With(zap.String("mod", "chaos-store")),
		metrics: metrics,
	}
}

// Apply атомарно заменяет конфигурацию. Невалидная конфигурация
// отклоняется с ErrInvalidConfiguration, прежнее значение остается.
func (s *Store) Apply(cfg domain.ChaosConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.setLocked(cfg, s.nextRevisionLocked())
	s.mu.Unlock()

	s.logger.Info("chaos configuration applied",
		zap.Bool("latency", cfg.LatencyEnabled),
		zap.Int("latency_ms", cfg.LatencyMs),
		zap.Float64("crash_rate", cfg.CrashRate),
		zap.Float64("partial_failure_rate", cfg.PartialFailureRate))
	return nil
}

// Clear сбрасывает конфигурацию в значение по умолчанию. Идемпотентен.
func (s *Store) Clear() {
	s.mu.Lock()
	s.setLocked(domain.DefaultChaosConfig(), s.nextRevisionLocked())
	s.mu.Unlock()

	s.logger.Info("chaos configuration cleared")
}

// ApplyRevision применяет конфигурацию, пришедшую с другого инстанса,
// только если ее ревизия новее текущей. false — запись устарела.
func (s *Store) ApplyRevision(cfg domain.ChaosConfig, revision int64) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if revision <= s.revision {
		return false, nil
	}
	s.setLocked(cfg, revision)
	return true, nil
}

// Current возвращает согласованный снимок.
func (s *Store) Current() domain.ChaosConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Revisioned — снимок вместе с ревизией записи, которая его породила.
func (s *Store) Revisioned() (domain.ChaosConfig, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.revision
}

// IsActive — производный флаг от текущего снимка.
func (s *Store) IsActive() bool {
	return s.Current().IsActive()
}

// Status — снимок вместе с флагом активности (для GET /admin/chaos).
func (s *Store) Status() domain.ChaosStatus {
	cfg := s.Current()
	return domain.ChaosStatus{ChaosConfig: cfg, IsActive: cfg.IsActive()}
}

// setLocked меняет конфигурацию и гейдж одним шагом, вызывать под s.mu.
func (s *Store) setLocked(cfg domain.ChaosConfig, revision int64) {
	s.cfg = cfg
	s.revision = revision
	s.metrics.ChaosActive.Set(boolGauge(cfg.IsActive()))
}

func (s *Store) nextRevisionLocked() int64 {
	rev := s.now().UnixNano()
	if rev <= s.revision {
		rev = s.revision + 1
	}
	return rev
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
