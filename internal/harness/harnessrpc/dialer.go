package harnessrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dbtestharness/dbtestharness/internal/harness/controller"
	"github.com/dbtestharness/dbtestharness/pkg/harness/metrics"
)

// Dialer implements controller.Dialer by gRPC-dialing the endpoint and
// wrapping the connection in a Handle.
type Dialer struct {
	// DialOptions are appended after this package's required defaults
	// (insecure transport, JSON codec); callers needing TLS or interceptors
	// pass them here rather than forking Dial.
	DialOptions []grpc.DialOption
}

func (d Dialer) Dial(ctx context.Context, endpoint string) (controller.TesterHandle, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(callOption),
	}, d.DialOptions...)

	cc, err := grpc.DialContext(ctx, endpoint, opts...)
	if err != nil {
		return nil, err
	}
	return &Handle{id: endpoint, client: NewClient(cc), cc: cc}, nil
}

// Handle implements controller.TesterHandle over a *Client, translating
// between controller.WorkloadRequest and this package's wire messages.
type Handle struct {
	id     string
	client *Client
	cc     *grpc.ClientConn
}

func (h *Handle) ID() string { return h.id }

func (h *Handle) Assign(ctx context.Context, req controller.WorkloadRequest) error {
	_, err := h.client.Assign(ctx, &AssignRequest{
		Title:                  req.Title,
		Options:                req.Options,
		UseDB:                  req.UseDB,
		TimeoutNanos:           int64(req.Timeout),
		DatabasePingDelayNanos: int64(req.DatabasePingDelay),
		ClientID:               req.ClientID,
		ClientCount:            req.ClientCount,
		SharedRandomNumber:     req.SharedRandomNumber,
	})
	return err
}

func (h *Handle) Setup(ctx context.Context) error {
	_, err := h.client.Setup(ctx, &SetupRequest{})
	return err
}

func (h *Handle) Start(ctx context.Context) error {
	_, err := h.client.Start(ctx, &StartRequest{})
	return err
}

func (h *Handle) Check(ctx context.Context) (bool, error) {
	resp, err := h.client.Check(ctx, &CheckRequest{})
	if err != nil {
		return false, err
	}
	return resp.Passed, nil
}

func (h *Handle) Metrics(ctx context.Context) ([]metrics.PerfMetric, error) {
	resp, err := h.client.Metrics(ctx, &MetricsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}

func (h *Handle) Stop(ctx context.Context) {
	_, _ = h.client.Stop(ctx, &StopRequest{})
}

// Close releases this handle's underlying connection. The controller never
// calls this directly; it is for callers managing a Dialer's connections
// themselves.
func (h *Handle) Close() error {
	return h.cc.Close()
}
