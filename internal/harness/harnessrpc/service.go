package harnessrpc

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is this package's gRPC service path, "/harness.Tester/<Method>".
const serviceName = "harness.Tester"

// Server is what a tester process implements to serve the controller's
// calls. internal/harness/harnessrpc.TesterServer is the concrete
// implementation wrapping internal/harness/tester.Runner.
type Server interface {
	Assign(ctx context.Context, req *AssignRequest) (*AssignResponse, error)
	Setup(ctx context.Context, req *SetupRequest) (*SetupResponse, error)
	Start(ctx context.Context, req *StartRequest) (*StartResponse, error)
	Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error)
	Metrics(ctx context.Context, req *MetricsRequest) (*MetricsResponse, error)
	Stop(ctx context.Context, req *StopRequest) (*StopResponse, error)
}

// ServiceDesc is registered with a *grpc.Server via RegisterServer. Its
// Methods are hand-written rather than protoc-generated: each handler
// decodes through the caller-supplied dec func (which runs through
// jsonCodec) instead of a generated unmarshaller.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Assign", Handler: assignHandler},
		{MethodName: "Setup", Handler: setupHandler},
		{MethodName: "Start", Handler: startHandler},
		{MethodName: "Check", Handler: checkHandler},
		{MethodName: "Metrics", Handler: metricsHandler},
		{MethodName: "Stop", Handler: stopHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/harness/harnessrpc",
}

// RegisterServer registers srv's handlers on s.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

func assignHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AssignRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Assign(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Assign"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Assign(ctx, req.(*AssignRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func setupHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SetupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Setup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Setup"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Setup(ctx, req.(*SetupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func startHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Start(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Start"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Start(ctx, req.(*StartRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Check(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Check"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Check(ctx, req.(*CheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func metricsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MetricsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Metrics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Metrics"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Metrics(ctx, req.(*MetricsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func stopHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StopRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Stop(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Stop"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Stop(ctx, req.(*StopRequest))
	}
	return interceptor(ctx, in, info, handler)
}
