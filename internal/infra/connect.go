package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// startupAttempts — сколько раз пытаемся достучаться до зависимости при старте.
const startupAttempts = 5

// WaitFor повторяет check с экспоненциальным бэкоффом, пока зависимость
// не ответит. Используется только при старте процесса: пробы здоровья
// никогда не ретраятся.
func WaitFor(ctx context.Context, logger *zap.Logger, name string, check func(ctx context.Context) error) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(startupAttempts),
		retry.DelayType(retry.BackOffDelay),
	)

	attempt := 0
	err := r.Do(func() error {
		attempt++
		tCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		if err := check(tCtx); err != nil {
			logger.Warn("dependency not ready",
				zap.String("dependency", name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s unreachable after %d attempts: %w", name, attempt, err)
	}

	logger.Info("dependency ready", zap.String("dependency", name), zap.Int("attempt", attempt))
	return nil
}

// NewRedisClient создает клиента Redis. Недоступность при старте не фатальна:
// сервис должен уметь отдавать health=false, а не падать.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})

	if err := WaitFor(ctx, logger, "redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		logger.Warn("continuing without redis, cache probe will report unhealthy", zap.Error(err))
	}
	return rdb
}
