// Package health содержит пробы зависимостей и агрегатор,
// собирающий из них композитный документ здоровья сервиса.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
)

// Probe — синхронная проверка одной зависимости.
// Check обязан уважать ctx: по его отмене драйвер прерывает запрос.
type Probe interface {
	Name() string
	Check(ctx context.Context) domain.ProbeResult
}

// Run выполняет пробу с верхней границей по времени. Результат приходит
// не позже timeout: если проба не успела, возвращается unhealthy с описанием
// таймаута. Сама проба получает тот же ctx и прерывается вместе с ним.
func Run(ctx context.Context, p Probe, timeout time.Duration) domain.ProbeResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan domain.ProbeResult, 1)
	go func() {
		done <- p.Check(ctx)
	}()

	select {
	case res := <-done:
		return res.WithDuration(time.Since(start))
	case <-ctx.Done():
		reason := fmt.Sprintf("%s probe timed out after %s", p.Name(), timeout)
		if ctx.Err() == context.Canceled {
			reason = fmt.Sprintf("%s probe cancelled", p.Name())
		}
		res := domain.UnhealthyResult(
			fmt.Errorf("%w: %s", domain.ErrDependencyUnavailable, reason).Error(),
			domain.Checks{{Name: "timeout", Status: domain.CheckFailed}},
			nil,
		)
		return res.WithDuration(time.Since(start))
	}
}
