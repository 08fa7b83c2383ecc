package harnessrpc

import (
	"context"

	"google.golang.org/grpc"
)

// callOption pins every call in this package to the JSON codec, so callers
// never have to remember to pass it themselves.
var callOption = grpc.CallContentSubtype(codecName)

// Client is a thin hand-written stub over a *grpc.ClientConn, standing in
// for what protoc would otherwise generate.
type Client struct {
	cc *grpc.ClientConn
}

// NewClient wraps an already-dialed connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) Assign(ctx context.Context, req *AssignRequest) (*AssignResponse, error) {
	out := new(AssignResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Assign", req, out, callOption); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error) {
	out := new(SetupResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Setup", req, out, callOption); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Start(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	out := new(StartResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Start", req, out, callOption); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	out := new(CheckResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Check", req, out, callOption); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Metrics(ctx context.Context, req *MetricsRequest) (*MetricsResponse, error) {
	out := new(MetricsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Metrics", req, out, callOption); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stop(ctx context.Context, req *StopRequest) (*StopResponse, error) {
	out := new(StopResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Stop", req, out, callOption); err != nil {
		return nil, err
	}
	return out, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.cc.Close()
}
