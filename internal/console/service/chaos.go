package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/resilience-control-plane/internal/chaos"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"go.uber.org/zap"
)

// ChaosPublisher рассылает изменения остальным инстансам.
type ChaosPublisher interface {
	PublishApply(ctx context.Context, cfg domain.ChaosConfig) error
	PublishClear(ctx context.Context) error
}

type ChaosService struct {
	store     *chaos.Store
	publisher ChaosPublisher
	logger    *zap.Logger
}

// NewChaosService — publisher может быть nil, тогда конфигурация живет
// только в этом процессе.
func NewChaosService(store *chaos.Store, publisher ChaosPublisher, logger *zap.Logger) *ChaosService {
	return &ChaosService{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("chaos-service"),
	}
}

func (s *ChaosService) Status() domain.ChaosStatus {
	return s.store.Status()
}

// Apply применяет конфигурацию локально и транслирует ее соседям.
// Ошибка валидации возвращается как есть, прежнее состояние сохраняется.
func (s *ChaosService) Apply(ctx context.Context, cfg domain.ChaosConfig) (domain.ChaosStatus, error) {
	if err := s.store.Apply(cfg); err != nil {
		return s.store.Status(), err
	}
	s.signal(ctx, "chaos-apply", func(ctx context.Context) error {
		return s.publisher.PublishApply(ctx, cfg)
	})
	return s.store.Status(), nil
}

// Clear сбрасывает конфигурацию. Идемпотентен.
func (s *ChaosService) Clear(ctx context.Context) domain.ChaosStatus {
	s.store.Clear()
	s.signal(ctx, "chaos-clear", s.publisherClear)
	return s.store.Status()
}

// ApplyPreset применяет именованный пресет.
func (s *ChaosService) ApplyPreset(ctx context.Context, name string) (domain.ChaosStatus, error) {
	preset, ok := domain.FindChaosPreset(name)
	if !ok {
		return s.store.Status(), fmt.Errorf("%w: unknown preset %q", domain.ErrInvalidConfiguration, name)
	}
	s.logger.Info("applying chaos preset", zap.String("preset", preset.Name))
	return s.Apply(ctx, preset.Config)
}

func (s *ChaosService) Presets() []domain.ChaosPreset {
	return domain.ChaosPresets()
}

func (s *ChaosService) publisherClear(ctx context.Context) error {
	return s.publisher.PublishClear(ctx)
}

// signal — локальная запись уже прошла, поэтому сбой доставки не
// превращается в ошибку запроса.
func (s *ChaosService) signal(ctx context.Context, action string, publish func(ctx context.Context) error) {
	if s.publisher == nil {
		return
	}
	if err := publish(ctx); err != nil {
		s.logger.Warn("runtime signal delivery failed",
			zap.String("action", action),
			zap.Error(err))
		return
	}
	s.logger.Debug("chaos signal published", zap.String("action", action))
}
