package harnessrpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dbtestharness/dbtestharness/internal/harness/controller"
	"github.com/dbtestharness/dbtestharness/pkg/harness/spec"
	_ "github.com/dbtestharness/dbtestharness/pkg/harness/workload/noop"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	RegisterServer(grpcServer, NewTesterServer(nil))
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	return lis.Addr().String()
}

func TestRoundTrip_AssignSetupStartCheckMetricsStop(t *testing.T) {
	addr := startTestServer(t)

	cc, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithDefaultCallOptions(callOption))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	h := &Handle{id: addr, client: NewClient(cc), cc: cc}
	ctx := context.Background()

	req := controller.WorkloadRequest{
		Title: "roundtrip",
		Options: []*spec.OptionBlock{{
			Options: []*spec.Option{{Key: "testName", Value: "Noop"}},
		}},
		ClientID:    0,
		ClientCount: 1,
	}
	require.NoError(t, h.Assign(ctx, req))
	require.NoError(t, h.Setup(ctx))
	require.NoError(t, h.Start(ctx))

	ok, err := h.Check(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ms, err := h.Metrics(ctx)
	require.NoError(t, err)
	require.Empty(t, ms)

	h.Stop(ctx)
}

func TestPhaseCallsBeforeAssignFail(t *testing.T) {
	addr := startTestServer(t)

	cc, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithDefaultCallOptions(callOption))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	h := &Handle{id: addr, client: NewClient(cc), cc: cc}
	require.Error(t, h.Setup(context.Background()))
}
