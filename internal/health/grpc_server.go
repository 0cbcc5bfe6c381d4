package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GRPCServer отдает тот же композитный документ через стандартный
// grpc.health.v1.Health: SERVING тогда и только тогда, когда /health здоров.
type GRPCServer struct {
	healthpb.UnimplementedHealthServer
	agg    *Aggregator
	logger *zap.Logger
}

func NewGRPCServer(agg *Aggregator, logger *zap.Logger) *GRPCServer {
	return &GRPCServer{agg: agg, logger: logger.Named("grpc-health")}
}

func (s *GRPCServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	// Пустое имя — общий статус сервера
	if svc := req.GetService(); svc != "" && svc != s.agg.Service() {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}

	doc := s.agg.Check(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if !doc.Healthy {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Debug("reporting NOT_SERVING", zap.String("reason", doc.Error))
	}
	return &healthpb.HealthCheckResponse{Status: st}, nil
}

// UnaryLoggingInterceptor пишет в лог каждый gRPC вызов.
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)))
		return resp, err
	}
}
