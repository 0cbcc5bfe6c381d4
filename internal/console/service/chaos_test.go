package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/resilience-control-plane/internal/chaos"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	applied []domain.ChaosConfig
	cleared int
	err     error
}

func (p *recordingPublisher) PublishApply(_ context.Context, cfg domain.ChaosConfig) error {
	p.applied = append(p.applied, cfg)
	return p.err
}

func (p *recordingPublisher) PublishClear(_ context.Context) error {
	p.cleared++
	return p.err
}

func TestChaosService_ApplyPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewChaosService(chaos.NewStore(zap.NewNop(), nil), pub, zap.NewNop())

	cfg := domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 2000}
	st, err := svc.Apply(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, st.IsActive)
	assert.Equal(t, []domain.ChaosConfig{cfg}, pub.applied)

	st = svc.Clear(context.Background())
	assert.False(t, st.IsActive)
	assert.Equal(t, 1, pub.cleared)
}

func TestChaosService_InvalidIsNotPublished(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewChaosService(chaos.NewStore(zap.NewNop(), nil), pub, zap.NewNop())

	_, err := svc.Apply(context.Background(), domain.ChaosConfig{LatencyMs: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Empty(t, pub.applied)
}

func TestChaosService_PublishFailureKeepsLocalState(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis: connection refused")}
	store := chaos.NewStore(zap.NewNop(), nil)
	svc := NewChaosService(store, pub, zap.NewNop())

	cfg := domain.ChaosConfig{CrashRate: 0.2}
	_, err := svc.Apply(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, store.Current())
}

func TestChaosService_WithoutPublisher(t *testing.T) {
	svc := NewChaosService(chaos.NewStore(zap.NewNop(), nil), nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), domain.ChaosConfig{PartialFailureRate: 0.5})
	require.NoError(t, err)
	assert.False(t, svc.Clear(context.Background()).IsActive)
}

func TestChaosService_ApplyPreset(t *testing.T) {
	svc := NewChaosService(chaos.NewStore(zap.NewNop(), nil), nil, zap.NewNop())

	st, err := svc.ApplyPreset(context.Background(), "moderate")
	require.NoError(t, err)
	assert.Equal(t, 5000, st.LatencyMs)
	assert.Equal(t, 0.3, st.CrashRate)

	_, err = svc.ApplyPreset(context.Background(), "unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Equal(t, 5000, svc.Status().LatencyMs, "failed preset keeps previous config")

	assert.Len(t, svc.Presets(), 3)
}
