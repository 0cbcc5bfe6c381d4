package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/resilience-control-plane/internal/console/handler"
	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"github.com/xela07ax/resilience-control-plane/internal/observer"
	"go.uber.org/zap"
)

type stubDashboard struct{ d observer.Dashboard }

func (s stubDashboard) Dashboard() observer.Dashboard { return s.d }

func TestObserverServer_Dashboard(t *testing.T) {
	dash := observer.Dashboard{
		GeneratedAt: time.Now(),
		Services: []observer.ServiceView{
			{
				Name:     "order-service",
				Endpoint: "http://order:3002/health/deep",
				Polled:   true,
				Window:   &domain.WindowSnapshot{AverageMs: 1200, Level: domain.LevelCritical, AlertActive: true},
			},
			{Name: "inventory-service", Endpoint: "http://inventory:3001/health"},
		},
	}
	api := NewObserverServer(zap.NewNop(), nil, nil, handler.NewDashboardHandler(stubDashboard{d: dash}))
	srv := httptest.NewServer(api)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got observer.Dashboard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Services, 2)
	assert.True(t, got.Services[0].Window.AlertActive)
	assert.Equal(t, domain.LevelCritical, got.Services[0].Window.Level)
	assert.False(t, got.Services[1].Polled)

	one, err := srv.Client().Get(srv.URL + "/dashboard/inventory-service")
	require.NoError(t, err)
	one.Body.Close()
	assert.Equal(t, http.StatusOK, one.StatusCode)

	missing, err := srv.Client().Get(srv.URL + "/dashboard/payments")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	// Без реестра /metrics не публикуется
	metrics, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metrics.Body.Close()
	assert.Equal(t, http.StatusNotFound, metrics.StatusCode)
}
