package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/resilience-control-plane/internal/chaos"
	"github.com/xela07ax/resilience-control-plane/internal/console/handler"
	"github.com/xela07ax/resilience-control-plane/internal/console/service"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
	"go.uber.org/zap"
)

type stubChecker struct {
	doc domain.HealthDocument
}

func (s stubChecker) Check(context.Context) domain.HealthDocument { return s.doc }

func (s stubChecker) DeepCheck(context.Context) domain.HealthDocument {
	doc := s.doc
	doc.Latency = &domain.LatencyAttribution{TotalMs: 1, Components: map[string]int64{"database": 1}}
	return doc
}

type testEnv struct {
	srv   *httptest.Server
	store *chaos.Store
}

func newTestEnv(t *testing.T, doc domain.HealthDocument, rps float64, burst int) *testEnv {
	cfg := &infra.Config{
		Service: infra.ServiceConfig{Name: "inventory-service"},
		Chaos:   infra.ChaosConfig{AdminRPS: rps, AdminBurst: burst},
	}
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	store := chaos.NewStore(zap.NewNop(), metrics)
	gate := chaos.NewGate(store, zap.NewNop(), metrics)
	svc := service.NewChaosService(store, nil, zap.NewNop())

	api := NewServiceServer(cfg, zap.NewNop(), metrics, reg, gate,
		handler.NewChaosHandler(svc, zap.NewNop()),
		handler.NewHealthHandler(stubChecker{doc: doc}),
		handler.NewPingHandler(cfg.Service.Name),
	)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store}
}

func healthyDoc() domain.HealthDocument {
	return domain.HealthDocument{
		ProbeResult: domain.HealthyResult(domain.Checks{{Name: "database", Status: domain.CheckOK}}, nil),
		Service:     "inventory-service",
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServiceServer_ChaosLifecycle(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)

	resp, body := env.do(t, http.MethodGet, "/admin/chaos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isActive"])
	assert.Equal(t, false, body["latency"])
	assert.EqualValues(t, 0, body["crash_rate"])

	resp, body = env.do(t, http.MethodPost, "/admin/chaos",
		`{"latency":true,"latency_ms":2000,"crash_rate":0.1,"partial_failure_rate":0.05}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isActive"])
	assert.EqualValues(t, 2000, body["latency_ms"])
	assert.Equal(t, domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 2000, CrashRate: 0.1, PartialFailureRate: 0.05}, env.store.Current())

	resp, _ = env.do(t, http.MethodDelete, "/admin/chaos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.DefaultChaosConfig(), env.store.Current())

	// Повторный сброс тоже 200
	resp, _ = env.do(t, http.MethodDelete, "/admin/chaos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceServer_InvalidConfiguration(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)
	require.NoError(t, env.store.Apply(domain.ChaosConfig{CrashRate: 0.2}))

	for _, body := range []string{`{"crash_rate":1.5}`, `{"latency_ms":-1}`, `not json`} {
		resp, out := env.do(t, http.MethodPost, "/admin/chaos", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "invalid_configuration", out["error"], body)
	}
	assert.Equal(t, domain.ChaosConfig{CrashRate: 0.2}, env.store.Current())
}

func TestServiceServer_ApiAliasAndPresets(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)

	resp, _ := env.do(t, http.MethodPost, "/api/admin/chaos/presets/mild", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2000, env.store.Current().LatencyMs)

	resp, _ = env.do(t, http.MethodPost, "/admin/chaos/presets/nope", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/admin/chaos/presets", nil)
	presetsResp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer presetsResp.Body.Close()
	var presets []domain.ChaosPreset
	require.NoError(t, json.NewDecoder(presetsResp.Body).Decode(&presets))
	assert.Len(t, presets, 3)
}

func TestServiceServer_HealthStatusCodes(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)
	resp, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["healthy"])
	assert.NotContains(t, body, "latency")

	resp, body = env.do(t, http.MethodGet, "/health/deep", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "latency")

	sick := domain.HealthDocument{
		ProbeResult: domain.UnhealthyResult("unhealthy dependencies: database", nil, nil),
		Service:     "inventory-service",
	}
	env = newTestEnv(t, sick, 100, 100)
	resp, body = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy dependencies: database", body["error"])
}

func TestServiceServer_GateCoversProtectedRoutesOnly(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)
	require.NoError(t, env.store.Apply(domain.ChaosConfig{CrashRate: 1}))

	resp, body := env.do(t, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "simulated_crash", body["error"])

	resp, _ = env.do(t, http.MethodGet, "/health/deep", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Админка всегда доступна, иначе хаос не выключить
	resp, _ = env.do(t, http.MethodDelete, "/admin/chaos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServiceServer_DegradedPing(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)
	require.NoError(t, env.store.Apply(domain.ChaosConfig{PartialFailureRate: 1}))

	resp, body := env.do(t, http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(chaos.DegradedHeader))
	assert.Equal(t, true, body["degraded"])
	assert.NotContains(t, body, "status")
}

func TestServiceServer_InjectedLatency(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)
	require.NoError(t, env.store.Apply(domain.ChaosConfig{LatencyEnabled: true, LatencyMs: 100}))

	start := time.Now()
	resp, _ := env.do(t, http.MethodGet, "/health/deep", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestServiceServer_AdminMutationsThrottled(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 0.001, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := env.do(t, http.MethodDelete, "/admin/chaos", "")
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Чтение не лимитируется
	resp, _ := env.do(t, http.MethodGet, "/admin/chaos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceServer_TraceIDAndMetrics(t *testing.T) {
	env := newTestEnv(t, healthyDoc(), 100, 100)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/health", nil)
	req.Header.Set(TraceHeader, "trace-123")
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get(TraceHeader))

	resp, err = env.srv.Client().Get(env.srv.URL + "/admin/chaos")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(TraceHeader))

	resp, err = env.srv.Client().Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
	assert.Contains(t, string(raw), "chaos_active")
}
