package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
)

const maxHealthBody = 1 << 20

// RemoteResult — нормализованный ответ удаленного health-эндпоинта.
type RemoteResult struct {
	Document   domain.HealthDocument
	RTT        time.Duration
	StatusCode int
}

// FetchDocument опрашивает health-эндпоинт другого сервиса с таймаутом.
// Любой сбой (таймаут, отказ в соединении, не-2xx) превращается в документ
// с healthy=false — точно такой же, как если бы сервис сам сообщил о проблеме.
// Повторов нет.
func FetchDocument(ctx context.Context, client *http.Client, name, url string, timeout time.Duration) RemoteResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RemoteResult{Document: domain.UnreachableDocument(name, err, start), RTT: time.Since(start)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: timeout of %dms exceeded", domain.ErrDependencyUnavailable, timeout.Milliseconds())
		} else {
			err = fmt.Errorf("%w: %v", domain.ErrDependencyUnavailable, err)
		}
		return RemoteResult{Document: domain.UnreachableDocument(name, err, start), RTT: time.Since(start)}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
	rtt := time.Since(start)
	if readErr != nil {
		err := fmt.Errorf("%w: reading response: %v", domain.ErrDependencyUnavailable, readErr)
		return RemoteResult{Document: domain.UnreachableDocument(name, err, start), RTT: rtt, StatusCode: resp.StatusCode}
	}

	// Если сервис не прислал healthy вовсе, успешный ответ считается здоровым
	doc := domain.HealthDocument{ProbeResult: domain.ProbeResult{Healthy: true}}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil && resp.StatusCode < 300 {
			doc = domain.HealthDocument{ProbeResult: domain.ProbeResult{Healthy: true}}
			doc.Details = map[string]any{"body": string(body)}
		}
	}

	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		doc.Healthy = false
		if doc.Error == "" {
			doc.Error = fmt.Sprintf("request failed with status code %d", resp.StatusCode)
		}
	case !doc.Healthy && doc.Error == "":
		doc.Error = "service reported unhealthy"
	case doc.Healthy:
		doc.Error = ""
	}

	if doc.Service == "" {
		doc.Service = name
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = start
	}
	doc.DurationMs = rtt.Milliseconds()

	return RemoteResult{Document: doc, RTT: rtt, StatusCode: resp.StatusCode}
}
