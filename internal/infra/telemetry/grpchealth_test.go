package telemetry

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestStartGRPCHealthServer_Serving(t *testing.T) {
	listener := mustListen(t)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- StartGRPCHealthServer(ctx, GRPCServerOptions{Addr: addr}, zap.NewNop())
	}()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		checkCtx, checkCancel := context.WithTimeout(context.Background(), time.Second)
		defer checkCancel()
		resp, err := client.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 25*time.Millisecond)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("grpc server did not stop in time")
	}
}

func TestStartGRPCHealthServer_ListenFailure(t *testing.T) {
	listener := mustListen(t)
	defer listener.Close()
	addr := listener.Addr().String()

	err := StartGRPCHealthServer(context.Background(), GRPCServerOptions{Addr: addr}, zap.NewNop())
	require.Error(t, err)
}
