package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xela07ax/resilience-control-plane/internal/console/handler"
	"github.com/xela07ax/resilience-control-plane/internal/console/server"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"github.com/xela07ax/resilience-control-plane/internal/observer"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger, "observer")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("observer failed", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	if len(cfg.Observer.Targets) == 0 {
		return errors.New("observer.targets is empty")
	}

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewMetrics(reg)

	obs := observer.New(cfg, logger, metrics)
	done := make(chan struct{})
	go func() {
		defer close(done)
		obs.Run(appCtx)
	}()

	api := server.NewObserverServer(logger, metrics, reg, handler.NewDashboardHandler(obs))
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Observer.Port),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("observer API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("observer stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-done
	logger.Info("observer exited properly")
	return nil
}
