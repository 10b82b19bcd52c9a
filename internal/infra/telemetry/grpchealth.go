package telemetry

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"webmcpd/internal/domain"
)

type GRPCServerOptions struct {
	Addr string
}

// StartGRPCHealthServer exposes the standard gRPC health service plus
// server reflection for probing from infrastructure tooling. It blocks
// until ctx is canceled.
func StartGRPCHealthServer(ctx context.Context, opts GRPCServerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultGRPCListenAddress
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	server := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("grpc health server listening", zap.String("addr", addr))
		errChan <- server.Serve(lis)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("grpc health server failed: %w", err)
	case <-ctx.Done():
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(domain.DefaultShutdownGraceSeconds * time.Second):
			server.Stop()
		}
		logger.Info("grpc health server stopped")
		return nil
	}
}
