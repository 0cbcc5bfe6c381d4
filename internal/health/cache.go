package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"go.uber.org/zap"
)

const cacheProbeKeyTTL = 5 * time.Second

// CacheProbe проверяет Redis: ping с таймаутом и пробную запись/удаление.
// Упавшая запись при живом ping не делает кэш нездоровым — только degraded.
type CacheProbe struct {
	rdb         redis.Cmdable
	pingTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func NewCacheProbe(rdb redis.Cmdable, pingTimeout time.Duration, logger *zap.Logger) *CacheProbe {
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}
	return &CacheProbe{
		rdb:         rdb,
		pingTimeout: pingTimeout,
		now:         time.Now,
		logger:      logger.With(zap.String("mod", "cache-probe")),
	}
}

func (p *CacheProbe) Name() string { return "cache" }

func (p *CacheProbe) Check(ctx context.Context) domain.ProbeResult {
	if err := p.ping(ctx); err != nil {
		p.logger.Error("redis health check failed", zap.Error(err))
		return domain.UnhealthyResult(err.Error(),
			domain.Checks{
				{Name: "ping", Status: domain.CheckFailed},
				{Name: "operations", Status: domain.CheckUnknown},
			},
			map[string]any{"ping": domain.CheckFailed, "operations": domain.CheckUnknown},
		)
	}

	if err := p.roundTrip(ctx); err != nil {
		p.logger.Warn("redis operations warning", zap.Error(err))
		return domain.HealthyResult(
			domain.Checks{
				{Name: "ping", Status: domain.CheckOK},
				{Name: "operations", Status: domain.CheckDegraded},
			},
			map[string]any{
				"ping":       domain.CheckOK,
				"operations": domain.CheckDegraded,
				"warning":    err.Error(),
			},
		)
	}

	return domain.HealthyResult(
		domain.Checks{
			{Name: "ping", Status: domain.CheckOK},
			{Name: "operations", Status: domain.CheckOK},
		},
		map[string]any{"ping": domain.CheckOK, "operations": domain.CheckOK},
	)
}

func (p *CacheProbe) ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()

	if err := p.rdb.Ping(pctx).Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("redis ping timeout after %s", p.pingTimeout)
		}
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (p *CacheProbe) roundTrip(ctx context.Context) error {
	key := infra.HealthProbeKey(p.now())
	if err := p.rdb.Set(ctx, key, "1", cacheProbeKeyTTL).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrDegradedOperation, key, err)
	}
	if err := p.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", domain.ErrDegradedOperation, key, err)
	}
	return nil
}
