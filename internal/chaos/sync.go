package chaos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"go.uber.org/zap"
)

const (
	actionApply = "apply"
	actionClear = "clear"
)

type syncMessage struct {
	Origin   string             `json:"origin"`
	Action   string             `json:"action"`
	Revision int64              `json:"revision"`
	Config   domain.ChaosConfig `json:"config"`
}

// Syncer рассылает изменения конфигурации остальным инстансам сервиса
// через Redis Pub/Sub. Состояние по-прежнему живет только в памяти:
// новый инстанс стартует с конфигурацией по умолчанию.
//
// Побеждает запись с большей ревизией (время записи на исходном
// инстансе), поэтому одновременные изменения на двух инстансах сходятся
// к одной конфигурации, а не меняются местами.
type Syncer struct {
	rdb     *redis.Client
	store   *Store
	origin  string
	channel string
	logger  *zap.Logger
}

func NewSyncer(rdb *redis.Client, store *Store, logger *zap.Logger) *Syncer {
	return &Syncer{
		rdb:     rdb,
		store:   store,
		origin:  uuid.NewString(),
		channel: infra.RedisChanChaosConfig,
		logger:  logger.With(zap.String("mod", "chaos-sync")),
	}
}

// Origin — идентификатор этого инстанса в сообщениях.
func (s *Syncer) Origin() string {
	return s.origin
}

// PublishApply транслирует локальную конфигурацию. Уходит снимок
// хранилища с его ревизией: если cfg уже перезаписан более новой
// записью, соседи получат именно ее.
func (s *Syncer) PublishApply(ctx context.Context, _ domain.ChaosConfig) error {
	return s.publishCurrent(ctx)
}

// PublishClear транслирует сброс.
func (s *Syncer) PublishClear(ctx context.Context) error {
	return s.publishCurrent(ctx)
}

func (s *Syncer) publishCurrent(ctx context.Context) error {
	cfg, rev := s.store.Revisioned()
	action := actionApply
	if cfg == domain.DefaultChaosConfig() {
		action = actionClear
	}
	return s.publish(ctx, syncMessage{Origin: s.origin, Action: action, Revision: rev, Config: cfg})
}

func (s *Syncer) publish(ctx context.Context, msg syncMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("chaos sync: marshal: %w", err)
	}
	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("chaos sync: publish: %w", err)
	}
	return nil
}

// StartListener подписывается на изменения от других инстансов. Блокирует до отмены ctx.
func (s *Syncer) StartListener(ctx context.Context) {
	s.logger.Info("chaos sync listener started", zap.String("origin", s.origin))
	ListenResilient(ctx, s.rdb, s.logger, s.channel, nil, s.handle)
	s.logger.Info("chaos sync listener stopped")
}

func (s *Syncer) handle(payload string) {
	var msg syncMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.logger.Error("invalid chaos signal", zap.String("payload", payload), zap.Error(err))
		return
	}

	// Свои сообщения уже применены локально; эхо могло бы откатить более свежую запись
	if msg.Origin == s.origin {
		return
	}

	var cfg domain.ChaosConfig
	switch msg.Action {
	case actionApply:
		cfg = msg.Config
	case actionClear:
		cfg = domain.DefaultChaosConfig()
	default:
		s.logger.Warn("unknown chaos signal action", zap.String("action", msg.Action))
		return
	}

	applied, err := s.store.ApplyRevision(cfg, msg.Revision)
	if err != nil {
		s.logger.Warn("rejected remote chaos configuration", zap.String("from", msg.Origin), zap.Error(err))
		return
	}
	if !applied {
		s.logger.Debug("stale chaos signal dropped",
			zap.String("from", msg.Origin),
			zap.Int64("revision", msg.Revision))
		return
	}
	s.logger.Info("remote chaos configuration applied",
		zap.String("from", msg.Origin),
		zap.String("action", msg.Action),
		zap.Int64("revision", msg.Revision))
}
