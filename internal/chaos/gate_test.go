package chaos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"go.uber.org/zap"
)

type fixedStore struct{ cfg domain.ChaosConfig }

func (f fixedStore) Current() domain.ChaosConfig { return f.cfg }

// sequence отдает заранее заданные броски и считает обращения.
type sequence struct {
	values []float64
	calls  int
}

func (s *sequence) next() float64 {
	v := s.values[s.calls%len(s.values)]
	s.calls++
	return v
}

type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func newTestGate(cfg domain.ChaosConfig, draws []float64) (*Gate, *sequence, *sleepRecorder) {
	seq := &sequence{values: draws}
	rec := &sleepRecorder{}
	g := NewGate(fixedStore{cfg: cfg}, zap.NewNop(), nil, WithRandom(seq.next), WithSleep(rec.sleep))
	return g, seq, rec
}

func TestGate_CrashRateOneAlwaysCrashes(t *testing.T) {
	store := NewStore(zap.NewNop(), nil)
	require.NoError(t, store.Apply(domain.ChaosConfig{CrashRate: 1}))
	g := NewGate(store, zap.NewNop(), nil)

	for i := 0; i < 1000; i++ {
		d, err := g.Inject(context.Background())
		require.ErrorIs(t, err, domain.ErrSimulatedCrash)
		assert.Equal(t, domain.EffectCrash, d.Effect)
	}
}

func TestGate_ZeroConfigLeavesRequestsAlone(t *testing.T) {
	g, seq, rec := newTestGate(domain.DefaultChaosConfig(), []float64{0})

	for i := 0; i < 100; i++ {
		d, err := g.Inject(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.EffectNone, d.Effect)
		assert.Zero(t, d.Delay)
	}
	assert.Zero(t, seq.calls, "no draws when rates are zero")
	assert.Empty(t, rec.slept)
}

func TestGate_CrashCheckedBeforePartialFailure(t *testing.T) {
	cfg := domain.ChaosConfig{CrashRate: 0.5, PartialFailureRate: 0.5}

	t.Run("crash wins and partial is not drawn", func(t *testing.T) {
		g, seq, _ := newTestGate(cfg, []float64{0.1})
		d := g.Decide()
		assert.Equal(t, domain.EffectCrash, d.Effect)
		assert.Equal(t, 1, seq.calls)
	})

	t.Run("partial after missed crash", func(t *testing.T) {
		g, seq, _ := newTestGate(cfg, []float64{0.9, 0.1})
		d := g.Decide()
		assert.Equal(t, domain.EffectDegraded, d.Effect)
		assert.Equal(t, 2, seq.calls)
	})

	t.Run("both missed", func(t *testing.T) {
		g, _, _ := newTestGate(cfg, []float64{0.9, 0.9})
		assert.Equal(t, domain.EffectNone, g.Decide().Effect)
	})

	t.Run("draw equal to rate does not fire", func(t *testing.T) {
		g, _, _ := newTestGate(domain.ChaosConfig{CrashRate: 0.5}, []float64{0.5})
		assert.Equal(t, domain.EffectNone, g.Decide().Effect)
	})
}

func TestGate_LatencyComposesWithEveryOutcome(t *testing.T) {
	base := domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 2000, CrashRate: 0.5, PartialFailureRate: 0.5}

	tests := []struct {
		name   string
		draws  []float64
		effect domain.ChaosEffect
	}{
		{"crash", []float64{0.1}, domain.EffectCrash},
		{"degraded", []float64{0.9, 0.1}, domain.EffectDegraded},
		{"untouched", []float64{0.9, 0.9}, domain.EffectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, rec := newTestGate(base, tt.draws)
			d, _ := g.Inject(context.Background())
			assert.Equal(t, tt.effect, d.Effect)
			require.Len(t, rec.slept, 1)
			assert.GreaterOrEqual(t, rec.slept[0], 2000*time.Millisecond)
		})
	}
}

func TestGate_LatencyDisabledIgnoresLatencyMs(t *testing.T) {
	g, _, rec := newTestGate(domain.ChaosConfig{LatencyEnabled: false, LatencyMs: 5000}, []float64{0})
	d, err := g.Inject(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.Delay)
	assert.Empty(t, rec.slept)
}

func TestGate_HugeLatencyStillDelays(t *testing.T) {
	g, _, rec := newTestGate(domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 9_300_000_000_000}, []float64{0})
	d, err := g.Inject(context.Background())
	require.NoError(t, err)
	assert.Positive(t, d.Delay)
	require.Len(t, rec.slept, 1)
	assert.Equal(t, d.Delay, rec.slept[0])
}

func TestGate_RealDelay(t *testing.T) {
	store := NewStore(zap.NewNop(), nil)
	require.NoError(t, store.Apply(domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 50, CrashRate: 1}))
	g := NewGate(store, zap.NewNop(), nil)

	start := time.Now()
	_, err := g.Inject(context.Background())
	assert.ErrorIs(t, err, domain.ErrSimulatedCrash)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestGate_CancelledDuringDelay(t *testing.T) {
	store := NewStore(zap.NewNop(), nil)
	require.NoError(t, store.Apply(domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 10000}))
	g := NewGate(store, zap.NewNop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Inject(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
