package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/resilience-control-plane/internal/chaos"
	"github.com/xela07ax/resilience-control-plane/internal/console/handler"
	"github.com/xela07ax/resilience-control-plane/internal/console/server"
	"github.com/xela07ax/resilience-control-plane/internal/console/service"
	"github.com/xela07ax/resilience-control-plane/internal/health"
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"github.com/xela07ax/resilience-control-plane/internal/repository/postgres"
	"github.com/xela07ax/resilience-control-plane/internal/telemetry"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger, cfg.Service.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст для управления жизненным циклом фоновых горутин
	// При SIGTERM cancel() остановит слушателей
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// 2. Инфраструктура: обе зависимости опциональны, их отсутствие видно в /health
	var probes []health.Probe

	if cfg.Database.URL != "" {
		db, err := postgres.Open(appCtx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		probes = append(probes, health.NewDatastoreProbe(postgres.NewHealthRepo(db), cfg.Service.Table, logger))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = infra.NewRedisClient(appCtx, cfg.Redis, logger)
		defer rdb.Close()
		probes = append(probes, health.NewCacheProbe(rdb, cfg.Health.CachePingTimeout, logger))
	}

	// 3. Control Plane: хранилище хаоса, гейт и рассылка по инстансам
	store := chaos.NewStore(logger, metrics)
	gate := chaos.NewGate(store, logger, metrics)

	var publisher service.ChaosPublisher
	if cfg.Chaos.SyncEnabled {
		if rdb == nil {
			return errors.New("chaos.sync_enabled requires redis.addr")
		}
		syncer := chaos.NewSyncer(rdb, store, logger)
		go syncer.StartListener(appCtx)
		publisher = syncer
	}
	chaosService := service.NewChaosService(store, publisher, logger)

	// 4. Наблюдаемость
	agg := health.NewAggregator(cfg.Service.Name, probes, cfg.Health.ProbeTimeout, logger, metrics,
		health.WithDownstream(cfg.Service.Downstream, cfg.Health.FetchTimeout))

	// 5. HTTP Server
	api := server.NewServiceServer(cfg, logger, metrics, reg, gate,
		handler.NewChaosHandler(chaosService, logger),
		handler.NewHealthHandler(agg),
		handler.NewPingHandler(cfg.Service.Name),
	)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. gRPC health
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(health.UnaryLoggingInterceptor(logger)))
	healthpb.RegisterHealthServer(grpcSrv, health.NewGRPCServer(agg, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server started", zap.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()
	go func() {
		logger.Info("service started",
			zap.String("addr", srv.Addr),
			zap.Int("probes", len(probes)),
			zap.Bool("chaos_sync", cfg.Chaos.SyncEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	// 7. Graceful Shutdown
	select {
	case <-appCtx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("service stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("service exited properly")
	return nil
}
