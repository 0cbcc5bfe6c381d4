package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
)

// fakeProbe — проба с управляемой задержкой. Уважает ctx.
type fakeProbe struct {
	name   string
	delay  time.Duration
	result domain.ProbeResult
}

func (p *fakeProbe) Name() string { return p.name }

func (p *fakeProbe) Check(ctx context.Context) domain.ProbeResult {
	select {
	case <-time.After(p.delay):
		return p.result
	case <-ctx.Done():
		return domain.UnhealthyResult(ctx.Err().Error(), nil, nil)
	}
}

func healthyProbe(name string, delay time.Duration) *fakeProbe {
	return &fakeProbe{
		name:   name,
		delay:  delay,
		result: domain.HealthyResult(domain.Checks{{Name: "ping", Status: domain.CheckOK}}, nil),
	}
}

func TestRun_ReturnsProbeResult(t *testing.T) {
	res := Run(context.Background(), healthyProbe("cache", 0), time.Second)

	assert.True(t, res.Healthy)
	assert.Empty(t, res.Error)
	st, _ := res.Checks.Get("ping")
	assert.Equal(t, domain.CheckOK, st)
}

func TestRun_TimeoutIsUnhealthy(t *testing.T) {
	start := time.Now()
	res := Run(context.Background(), healthyProbe("database", 5*time.Second), 50*time.Millisecond)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, res.Healthy)
	assert.Contains(t, res.Error, "database probe timed out after 50ms")
	assert.Contains(t, res.Error, domain.ErrDependencyUnavailable.Error())
	st, _ := res.Checks.Get("timeout")
	assert.Equal(t, domain.CheckFailed, st)
	assert.GreaterOrEqual(t, res.DurationMs, int64(50))
}

func TestRun_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Run(ctx, healthyProbe("cache", time.Second), time.Minute)
	assert.False(t, res.Healthy)
	assert.NotEmpty(t, res.Error)
}
