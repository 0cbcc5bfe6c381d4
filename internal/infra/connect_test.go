package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWaitFor_RetriesUntilReady(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), zap.NewNop(), "postgres", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitFor_GivesUp(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), zap.NewNop(), "redis", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis unreachable")
	assert.Equal(t, startupAttempts, calls)
}

func TestWaitFor_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := WaitFor(ctx, zap.NewNop(), "redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	defer rdb.Close()

	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestHealthProbeKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "health:1700000000123", HealthProbeKey(at))
}
