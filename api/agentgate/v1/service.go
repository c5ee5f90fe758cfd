// Package agentgatev1 defines the agentgate.v1.GateService gRPC service.
//
// Every method takes and returns a google.protobuf.Struct whose fields are
// the JSON form of the request and response types in this package, so
// clients in any language can call it with the well-known types alone.
package agentgatev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "agentgate.v1.GateService"

// Method names.
const (
	MethodEvaluate       = "Evaluate"
	MethodValidateOutput = "ValidateOutput"
	MethodSetDegraded    = "SetDegraded"
	MethodSetKillSwitch  = "SetKillSwitch"
	MethodListPending    = "ListPending"
	MethodResolve        = "Resolve"
	MethodStatus         = "Status"
	MethodReload         = "Reload"
)

// FullMethod returns "/agentgate.v1.GateService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// GateServiceServer is implemented by the gate server.
type GateServiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateOutput(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDegraded(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetKillSwitch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPending(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Resolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reload(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(GateServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GateServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(GateServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes GateService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodEvaluate, GateServiceServer.Evaluate),
		method(MethodValidateOutput, GateServiceServer.ValidateOutput),
		method(MethodSetDegraded, GateServiceServer.SetDegraded),
		method(MethodSetKillSwitch, GateServiceServer.SetKillSwitch),
		method(MethodListPending, GateServiceServer.ListPending),
		method(MethodResolve, GateServiceServer.Resolve),
		method(MethodStatus, GateServiceServer.Status),
		method(MethodReload, GateServiceServer.Reload),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentgate/v1/gate",
}

// RegisterGateServiceServer registers srv on s.
func RegisterGateServiceServer(s grpc.ServiceRegistrar, srv GateServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GateServiceClient is the client API for GateService.
type GateServiceClient interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type gateServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGateServiceClient wraps a connection.
func NewGateServiceClient(cc grpc.ClientConnInterface) GateServiceClient {
	return &gateServiceClient{cc: cc}
}

func (c *gateServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
